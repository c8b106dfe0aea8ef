package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/mslinn/perftrend/pkg/config"
	"github.com/mslinn/perftrend/pkg/database"
	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/report"
	"github.com/mslinn/perftrend/pkg/storage"
	"github.com/mslinn/perftrend/pkg/store"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		dbPath      string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")
	pflag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")

	// Stop parsing at first non-flag argument (the subcommand)
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if showVersion {
		fmt.Printf("perftrend-query version %s\n", version)
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 || showHelp {
		printHelp()
		os.Exit(0)
	}

	subcommand := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.UseDatabase(dbPath)
	}

	if debug {
		fmt.Printf("Store: %s\n", store.Describe(cfg))
	}

	s, err := store.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	switch subcommand {
	case "runs":
		handleRuns(s)
	case "reports":
		handleReports(s, args[1:])
	case "stats":
		handleStats(s, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printHelp()
		os.Exit(1)
	}
}

func handleRuns(s history.Store) {
	runs, err := s.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tNOTES")
	fmt.Fprintln(w, "---\t-------\t-----")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\n", run.Number, run.Timestamp.Format("2006-01-02 15:04:05"), run.Notes)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d run(s)\n", len(runs))
}

func handleReports(s history.Store, args []string) {
	fs := pflag.NewFlagSet("reports", pflag.ExitOnError)
	runNumber := fs.Int("run", 0, "Run number (0 = all runs)")
	fs.Parse(args)

	switch st := s.(type) {
	case *database.DB:
		infos, err := st.ListReports(*runNumber)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing reports: %v\n", err)
			os.Exit(1)
		}
		if len(infos) == 0 {
			fmt.Println("No reports found")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tREPORT\tFORMAT\tKEYS\tSAMPLES\tIMPORTED")
		fmt.Fprintln(w, "---\t------\t------\t----\t-------\t--------")
		for _, info := range infos {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n",
				info.RunNumber, info.Name, info.Format, info.KeyCount, info.SampleCount,
				info.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
		return

	case *storage.Redis:
		if *runNumber > 0 {
			names, err := st.RunReports(*runNumber)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing reports: %v\n", err)
				os.Exit(1)
			}
			printNames(fmt.Sprintf("Reports of run %d:", *runNumber), names)
			return
		}
	}

	names, err := s.ReportNames()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing reports: %v\n", err)
		os.Exit(1)
	}
	printNames("Reports over all runs:", names)
}

func printNames(title string, names []string) {
	if len(names) == 0 {
		fmt.Println("No reports found")
		return
	}
	fmt.Println(title)
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func handleStats(s history.Store, args []string) {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	runNumber := fs.Int("run", 0, "Run number (0 = overall statistics)")
	name := fs.String("report", "", "Report name (default: every report of the run)")
	fs.Parse(args)

	if *runNumber == 0 {
		overallStats(s)
		return
	}

	names := []string{*name}
	if *name == "" {
		var err error
		names, err = s.ReportNames()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing reports: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Run %d Statistics:\n", *runNumber)
	found := 0
	for _, n := range names {
		r, err := s.Report(*runNumber, n)
		if errors.Is(err, report.ErrReportNotFound) {
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading report %s: %v\n", n, err)
			os.Exit(1)
		}
		found++
		printReportStats(r)
	}

	if found == 0 {
		fmt.Fprintf(os.Stderr, "Error: run %d has no matching reports\n", *runNumber)
		os.Exit(1)
	}
}

func printReportStats(r *report.Report) {
	fmt.Printf("\n  %s (%d samples)\n\n", r.SourceName, r.Len())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  KEY\tAVG\tMEDIAN\t90%\tMIN\tMAX\tERR%\tTHROUGHPUT\tBYTES")
	for _, key := range r.Keys() {
		fmt.Fprintf(w, "  %s\t%.1f\t%.1f\t%.1f\t%.0f\t%.0f\t%.2f\t%.2f\t%s\n",
			key,
			r.DeriveKey(key, report.Average),
			r.DeriveKey(key, report.Median),
			r.DeriveKey(key, report.Percentile90),
			r.DeriveKey(key, report.Min),
			r.DeriveKey(key, report.Max),
			r.DeriveKey(key, report.ErrorPercent),
			r.DeriveKey(key, report.Throughput),
			formatSize(int64(r.DeriveKey(key, report.BytesTransferred))))
	}
	fmt.Fprintf(w, "  %s\t%.1f\t%.1f\t%.1f\t%.0f\t%.0f\t%.2f\t%.2f\t%s\n",
		"(all)",
		r.Average(), r.Median(), r.Percentile90(),
		r.Derive(report.Min), r.Derive(report.Max),
		r.ErrorPercent(), r.Derive(report.Throughput),
		formatSize(int64(r.Derive(report.BytesTransferred))))
	w.Flush()
}

func overallStats(s history.Store) {
	fmt.Printf("Overall Statistics:\n\n")

	runs, err := s.ListRuns()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		os.Exit(1)
	}
	names, err := s.ReportNames()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing reports: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  Runs:          %d\n", len(runs))
	if len(runs) > 0 {
		fmt.Printf("  First run:     %d (%s)\n", runs[0].Number, runs[0].Timestamp.Format("2006-01-02 15:04"))
		last := runs[len(runs)-1]
		fmt.Printf("  Latest run:    %d (%s)\n", last.Number, last.Timestamp.Format("2006-01-02 15:04"))
	}
	fmt.Printf("  Report names:  %d\n", len(names))

	db, ok := s.(*database.DB)
	if !ok {
		return
	}

	rows, err := db.QueryRaw(`
		SELECT r.name, COUNT(DISTINCT r.run_number), COUNT(s.id), AVG(s.duration_ms)
		FROM reports r LEFT JOIN samples s ON s.report_id = r.id
		GROUP BY r.name ORDER BY r.name`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying reports: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Printf("\n  Samples per report:\n")
	for rows.Next() {
		var name string
		var runCount, sampleCount int
		var avg *float64
		if err := rows.Scan(&name, &runCount, &sampleCount, &avg); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			continue
		}
		if avg == nil {
			fmt.Printf("    %s: %d run(s), no samples\n", name, runCount)
			continue
		}
		fmt.Printf("    %s: %d run(s), %d samples (avg %.1fms)\n", name, runCount, sampleCount, *avg)
	}

	rows2, err := db.QueryRaw(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM samples`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying samples: %v\n", err)
		os.Exit(1)
	}
	defer rows2.Close()

	if rows2.Next() {
		var total, failed int
		if err := rows2.Scan(&total, &failed); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			return
		}
		fmt.Printf("\n  Samples total: %d (%d failed)\n", total, failed)
	}
}

// formatSize formats bytes in human-readable format
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func printHelp() {
	fmt.Printf("perftrend-query - Query stored runs and reports\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("USAGE:\n")
	fmt.Printf("  perftrend-query [OPTIONS] SUBCOMMAND [ARGS]\n\n")

	fmt.Printf("SUBCOMMANDS:\n")
	fmt.Printf("  runs                           List all runs\n")
	fmt.Printf("  reports [--run N]              List stored reports\n")
	fmt.Printf("  stats [--run N] [--report R]   Show statistics (overall when no run is given)\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # List all runs\n")
	fmt.Printf("  perftrend-query runs\n\n")

	fmt.Printf("  # Reports of run 12\n")
	fmt.Printf("  perftrend-query reports --run 12\n\n")

	fmt.Printf("  # Per-endpoint statistics of one report\n")
	fmt.Printf("  perftrend-query stats --run 12 --report summary.log\n")
}
