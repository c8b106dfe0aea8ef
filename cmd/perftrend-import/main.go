package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mslinn/perftrend/pkg/config"
	"github.com/mslinn/perftrend/pkg/discover"
	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/logging"
	"github.com/mslinn/perftrend/pkg/parser"
	"github.com/mslinn/perftrend/pkg/store"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		dbPath      string
		runNumber   int
		timestamp   string
		notes       string
		glob        string
		marker      string
		workers     int
		dryRun      bool
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")
	pflag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
	pflag.IntVarP(&runNumber, "run", "r", 0, "Run number (default: next free number)")
	pflag.StringVar(&timestamp, "timestamp", "", "Run start time, RFC3339 (default: now)")
	pflag.StringVar(&notes, "notes", "", "Free text stored with the run")
	pflag.StringVarP(&glob, "glob", "g", "", "Log files to import, separated by ; : or , (default from config)")
	pflag.StringVar(&marker, "marker", "", "Text identifying summariser lines (default from config)")
	pflag.IntVarP(&workers, "workers", "w", 0, "Files parsed in parallel (default from config)")
	pflag.BoolVarP(&dryRun, "dry-run", "n", false, "Parse and report without storing anything")

	pflag.Parse()

	if showVersion {
		fmt.Printf("perftrend-import version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Error: exactly one results directory is required\n\n")
		printUsage()
		os.Exit(1)
	}
	root := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.UseDatabase(dbPath)
	}
	if glob != "" {
		cfg.Glob = glob
	}
	if marker != "" {
		cfg.Marker = marker
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	logger, err := logging.New(logging.Level(cfg.LogLevel, debug, false))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	started := time.Now()
	if timestamp != "" {
		started, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid --timestamp %q: %v\n", timestamp, err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths, err := discover.Find(root, cfg.Glob)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", root, err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no files under %s match %q\n", root, cfg.Glob)
		os.Exit(1)
	}
	logger.Debug("Found log files", zap.String("root", root), zap.Int("files", len(paths)))

	p, err := parser.NewParser(parser.FormatSummarizer, &parser.Options{Marker: cfg.Marker, Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, path := range paths {
		logger.Info("Parsing summarizer report file", zap.String("file", path))
	}
	results, failures := parser.ParseFiles(ctx, p, paths, cfg.Workers)

	for _, f := range failures {
		logger.Warn("File could not be read", zap.String("file", f.Path), zap.Error(f.Err))
	}
	for _, res := range results {
		for _, le := range res.Skipped {
			logger.Warn("Skipped malformed line",
				zap.String("file", res.Path), zap.Int("line", le.Line), zap.Error(le.Err))
		}
	}

	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "Error: interrupted\n")
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Fprintf(os.Stderr, "Error: none of the %d files could be parsed\n", len(paths))
		os.Exit(1)
	}

	if dups := parser.DuplicateSources(results); len(dups) > 0 {
		fmt.Fprintf(os.Stderr, "Error: several files map to the same report name:\n")
		for name, dupPaths := range dups {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", name, strings.Join(dupPaths, ", "))
		}
		fmt.Fprintf(os.Stderr, "Narrow --glob or import the directories as separate runs\n")
		os.Exit(1)
	}

	if dryRun {
		printResults(results)
		fmt.Printf("\n(dry run, nothing stored)\n")
		return
	}

	s, err := store.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	run, err := s.SaveRun(history.Run{Number: runNumber, Timestamp: started, Notes: notes})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving run: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("Saved run", zap.Int("run", run.Number), zap.String("store", store.Describe(cfg)))

	for _, res := range results {
		if err := s.SaveReport(run.Number, res.Report); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving report %s: %v\n", res.Report.SourceName, err)
			os.Exit(1)
		}
	}

	printResults(results)
	fmt.Printf("\n✓ Imported %d report(s) into run %d (%s)\n", len(results), run.Number, store.Describe(cfg))
	if len(failures) > 0 {
		fmt.Printf("⚠ %d file(s) could not be read\n", len(failures))
	}
}

func printResults(results []*parser.Result) {
	fmt.Printf("%-30s %8s %8s %8s\n", "REPORT", "LINES", "SAMPLES", "SKIPPED")
	for _, res := range results {
		fmt.Printf("%-30s %8d %8d %8d\n",
			filepath.Base(res.Path), res.TotalLines, res.Report.Len(), len(res.Skipped))
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perftrend-import [OPTIONS] DIR\n\n")
	fmt.Fprintf(os.Stderr, "Parse summariser logs under DIR and store them as one run\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("perftrend-import - Import performance logs as a test run\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Finds the log files under DIR that match the glob list, parses the\n")
	fmt.Printf("  summariser lines of each file into a report and stores every report\n")
	fmt.Printf("  under one run. Files are parsed in parallel and independently: a file\n")
	fmt.Printf("  that cannot be read is skipped with a warning, as are malformed lines.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perftrend-import [OPTIONS] DIR\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Import ./results as the next run\n")
	fmt.Printf("  perftrend-import ./results\n\n")

	fmt.Printf("  # Import a nightly run with an explicit number and start time\n")
	fmt.Printf("  perftrend-import --run 42 --timestamp 2024-03-01T02:00:00Z --notes nightly ./results\n\n")

	fmt.Printf("  # Only the summary logs, parsed by 4 workers\n")
	fmt.Printf("  perftrend-import --glob '**/summary*.log' --workers 4 ./results\n\n")

	fmt.Printf("  # Check what would be imported\n")
	fmt.Printf("  perftrend-import --dry-run ./results\n")
}
