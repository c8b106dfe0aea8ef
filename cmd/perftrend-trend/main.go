package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mslinn/perftrend/pkg/buildrange"
	"github.com/mslinn/perftrend/pkg/chart"
	"github.com/mslinn/perftrend/pkg/config"
	"github.com/mslinn/perftrend/pkg/logging"
	"github.com/mslinn/perftrend/pkg/report"
	"github.com/mslinn/perftrend/pkg/store"
	"github.com/mslinn/perftrend/pkg/trend"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		debug       bool
		dbPath      string
		reportName  string
		rangeMode   string
		count       int
		step        int
		firstDay    string
		lastDay     string
		view        string
		chartKind   string
		metric      string
		metrics     string
		format      string
		outPath     string
		oldestFirst bool
		width       int
		height      int
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.BoolVarP(&debug, "debug", "d", false, "Enable debug output")
	pflag.BoolVarP(&debug, "verbose", "v", false, "Enable verbose output (alias for --debug)")
	pflag.StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
	pflag.StringVarP(&reportName, "report", "r", "", "Report name (default from config, or the only stored report)")
	pflag.StringVar(&rangeMode, "range-mode", "", "Run selection: none, count, nth or date (default from config)")
	pflag.IntVar(&count, "count", 0, "Number of newest runs (count mode)")
	pflag.IntVar(&step, "step", 0, "Run number step (nth mode)")
	pflag.StringVar(&firstDay, "first-day", "", "First day dd/MM/yyyy (date mode)")
	pflag.StringVar(&lastDay, "last-day", "", "Last day dd/MM/yyyy, inclusive (date mode)")
	pflag.StringVar(&view, "view", "", "Series to build: "+strings.Join(trend.Views, ", "))
	pflag.StringVar(&chartKind, "chart", "", "Summarizer chart kind: responseTime, error or throughput (default from config)")
	pflag.StringVar(&metric, "metric", "average", "Metric of the per-endpoint view")
	pflag.StringVar(&metrics, "metrics", "", "Comma separated metrics plotted as one series each (overrides --view)")
	pflag.StringVarP(&format, "format", "f", "table", "Output format: table, json or png")
	pflag.StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	pflag.BoolVar(&oldestFirst, "oldest-first", false, "List runs oldest to newest")
	pflag.IntVar(&width, "width", 0, "PNG width in pixels")
	pflag.IntVar(&height, "height", 0, "PNG height in pixels")

	pflag.Parse()

	if showVersion {
		fmt.Printf("perftrend-trend version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.UseDatabase(dbPath)
	}
	if reportName == "" {
		reportName = cfg.Report
	}
	if chartKind == "" {
		chartKind = cfg.SummarizerChart
	}

	rng := cfg.Range
	if rangeMode != "" {
		mode, err := buildrange.ParseMode(rangeMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		rng.Mode = mode
	}
	if count > 0 {
		rng.Count = count
	}
	if step > 0 {
		rng.Step = step
	}
	if firstDay != "" {
		rng.FirstDay = firstDay
	}
	if lastDay != "" {
		rng.LastDay = lastDay
	}

	logger, err := logging.New(logging.Level(cfg.LogLevel, debug, false))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	proj, err := projection(view, metric, metrics, chartKind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ds, err := trend.Analyze(s, trend.Request{
		Report:     reportName,
		Range:      rng,
		Projection: proj,
		Options:    trend.Options{OldestFirst: oldestFirst, Logger: logger},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("Built trend",
		zap.String("report", ds.Report),
		zap.Stringer("range", ds.Range),
		zap.Int("series", len(ds.Names())),
		zap.Int("runs", len(ds.Labels())),
		zap.Int("skipped", len(ds.Skipped)))

	for _, sk := range ds.Skipped {
		logger.Warn("Run left out of the trend", zap.Int("run", sk.Run), zap.Error(sk.Err))
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", outPath, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "table":
		printTable(w, ds)
	case "json":
		data, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding dataset: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintln(w, string(data))
	case "png":
		if outPath == "" {
			fmt.Fprintf(os.Stderr, "Error: --format png requires --out\n")
			os.Exit(1)
		}
		err := chart.Render(ds, w, chart.Options{Width: width, Height: height})
		if errors.Is(err, chart.ErrNoData) {
			fmt.Fprintf(os.Stderr, "Error: no runs in %s have report %s\n", ds.Range, ds.Report)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering chart: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Wrote %s\n", outPath)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q (use table, json or png)\n", format)
		os.Exit(1)
	}
}

func projection(view, metric, metrics, chartKind string) (trend.Projection, error) {
	if metrics != "" {
		var ms []report.Metric
		for _, name := range strings.Split(metrics, ",") {
			m, err := report.ParseMetric(strings.TrimSpace(name))
			if err != nil {
				return trend.Projection{}, err
			}
			ms = append(ms, m)
		}
		return trend.Metrics(ms...), nil
	}

	m, err := report.ParseMetric(metric)
	if err != nil {
		return trend.Projection{}, err
	}
	kind, err := trend.ParseChartKind(chartKind)
	if err != nil {
		return trend.Projection{}, err
	}
	return trend.ProjectionByName(view, m, kind)
}

// printTable writes one row per run label and one column per series
func printTable(out io.Writer, ds *trend.Dataset) {
	fmt.Fprintf(out, "%s", ds.Title)
	if ds.Unit != "" {
		fmt.Fprintf(out, " (%s)", ds.Unit)
	}
	fmt.Fprintf(out, " - report %s, runs %s\n\n", ds.Report, ds.Range)

	if ds.Empty() {
		fmt.Fprintln(out, "No data")
		return
	}

	names := ds.Names()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "RUN\t%s\t\n", strings.Join(names, "\t"))
	for _, label := range ds.Labels() {
		fmt.Fprintf(w, "%s\t", label)
		for _, name := range names {
			if v, ok := ds.Value(name, label); ok {
				fmt.Fprintf(w, "%.2f\t", v)
			} else {
				fmt.Fprint(w, "-\t")
			}
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	if len(ds.Skipped) > 0 {
		fmt.Fprintf(out, "\n%d run(s) skipped\n", len(ds.Skipped))
	}
}

func printHelp() {
	fmt.Printf("perftrend-trend - Build trend series over past runs\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Selects a window of runs, reads one report from each and projects it\n")
	fmt.Printf("  into named series keyed by run number. Runs without the report are left\n")
	fmt.Printf("  out. Output is a table, JSON or a PNG chart.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perftrend-trend [OPTIONS]\n\n")

	fmt.Printf("RANGE MODES:\n")
	fmt.Printf("  none   Every run\n")
	fmt.Printf("  count  The --count newest runs\n")
	fmt.Printf("  nth    Every run whose number is a multiple of --step\n")
	fmt.Printf("  date   Runs started between --first-day and --last-day\n\n")

	fmt.Printf("VIEWS:\n")
	fmt.Printf("  response-time  Median, average and 90%% line (default)\n")
	fmt.Printf("  errors         Error percentage\n")
	fmt.Printf("  throughput     Requests per second\n")
	fmt.Printf("  bytes          KB transferred\n")
	fmt.Printf("  trend-report   Seven rounded metrics\n")
	fmt.Printf("  per-endpoint   One series per endpoint for --metric\n")
	fmt.Printf("  per-sample     One series per sample (failed samples as 0)\n")
	fmt.Printf("  summarizer     Summariser chart of kind --chart\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Response time of the last 10 runs\n")
	fmt.Printf("  perftrend-trend --range-mode count --count 10\n\n")

	fmt.Printf("  # Error chart of March as PNG\n")
	fmt.Printf("  perftrend-trend --view summarizer --chart error --range-mode date \\\n")
	fmt.Printf("      --first-day 01/03/2024 --last-day 31/03/2024 --format png --out errors.png\n\n")

	fmt.Printf("  # Max and 90%% line per run as JSON\n")
	fmt.Printf("  perftrend-trend --metrics max,p90 --format json\n")
}
