package trend

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mslinn/perftrend/pkg/report"
)

var (
	// ErrUnknownChartKind is returned for a summarizer chart kind other than
	// responseTime, error or throughput
	ErrUnknownChartKind = errors.New("unknown summarizer chart kind")

	// ErrUnknownProjection is returned by ProjectionByName
	ErrUnknownProjection = errors.New("unknown projection")
)

// Emit adds value to the named series at the label of the run being projected
type Emit func(series string, value float64)

// Projection turns the report of one run into series values
type Projection struct {
	Title   string
	Unit    string
	Project func(r *report.Report, emit Emit)
}

var displayNames = map[report.Metric]string{
	report.Average:          "Average",
	report.Median:           "Median",
	report.Percentile90:     "90% Line",
	report.Min:              "Minimum",
	report.Max:              "Maximum",
	report.ErrorPercent:     "Percentage of errors",
	report.ErrorCount:       "Errors",
	report.Throughput:       "Throughput",
	report.BytesTransferred: "Bytes transferred",
}

// DisplayName returns the series name used for m
func DisplayName(m report.Metric) string {
	if n, ok := displayNames[m]; ok {
		return n
	}
	return m.String()
}

// Unit returns the unit values of m are shown in
func Unit(m report.Metric) string {
	switch m {
	case report.ErrorPercent:
		return "%"
	case report.ErrorCount:
		return "errors"
	case report.Throughput:
		return "requests/sec"
	case report.BytesTransferred:
		return "KB"
	default:
		return "ms"
	}
}

// value converts a derived metric to its display unit
func value(m report.Metric, v float64) float64 {
	if m == report.BytesTransferred {
		return v / 1024
	}
	return v
}

// Metrics emits one series per metric over the whole report
func Metrics(metrics ...report.Metric) Projection {
	p := Projection{Title: "Metrics", Unit: "ms"}
	if len(metrics) > 0 {
		p.Title = DisplayName(metrics[0])
		p.Unit = Unit(metrics[0])
	}
	p.Project = func(r *report.Report, emit Emit) {
		for _, m := range metrics {
			emit(DisplayName(m), value(m, r.Derive(m)))
		}
	}
	return p
}

// ResponseTime emits median, average and 90% line
func ResponseTime() Projection {
	p := Metrics(report.Median, report.Average, report.Percentile90)
	p.Title = "Response time"
	return p
}

// Errors emits the error percentage
func Errors() Projection { return Metrics(report.ErrorPercent) }

// Throughput emits the average throughput
func Throughput() Projection { return Metrics(report.Throughput) }

// BytesTransferred emits the average bytes per sample, in KB
func BytesTransferred() Projection { return Metrics(report.BytesTransferred) }

var trendReportMetrics = []report.Metric{
	report.Average,
	report.Median,
	report.Percentile90,
	report.Min,
	report.Max,
	report.ErrorPercent,
	report.ErrorCount,
}

// TrendReport emits the seven trend table columns, rounded to integers
func TrendReport() Projection {
	return Projection{
		Title: "Trend report",
		Unit:  "ms",
		Project: func(r *report.Report, emit Emit) {
			for _, m := range trendReportMetrics {
				emit(DisplayName(m), math.Round(r.Derive(m)))
			}
		},
	}
}

// PerEndpoint emits one series per endpoint key
func PerEndpoint(m report.Metric) Projection {
	return Projection{
		Title: DisplayName(m) + " per endpoint",
		Unit:  Unit(m),
		Project: func(r *report.Report, emit Emit) {
			for _, key := range r.Keys() {
				emit(key, value(m, r.DeriveKey(key, m)))
			}
		},
	}
}

// PerSample emits every sample's duration, shortest first, under its key.
// A failed sample is plotted as 0.
func PerSample() Projection {
	return Projection{
		Title: "Response time per test case",
		Unit:  "ms",
		Project: func(r *report.Report, emit Emit) {
			for _, s := range report.SortByDuration(r.All()) {
				v := float64(s.DurationMs)
				if !s.Success {
					v = 0
				}
				emit(s.Key, v)
			}
		},
	}
}

// ChartKind selects the series of a summarizer chart
type ChartKind string

const (
	KindResponseTime ChartKind = "responseTime"
	KindError        ChartKind = "error"
	KindThroughput   ChartKind = "throughput"
)

// ParseChartKind matches kind case-insensitively; "" is KindResponseTime
func ParseChartKind(kind string) (ChartKind, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "responsetime", "response-time":
		return KindResponseTime, nil
	case "error", "errors":
		return KindError, nil
	case "throughput":
		return KindThroughput, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartKind, kind)
}

// Summarizer emits per-endpoint series from the summarizer fields
func Summarizer(kind ChartKind) (Projection, error) {
	kind, err := ParseChartKind(string(kind))
	if err != nil {
		return Projection{}, err
	}

	switch kind {
	case KindError:
		return Projection{
			Title: "Percentage of errors",
			Unit:  "%",
			Project: func(r *report.Report, emit Emit) {
				for _, key := range r.Keys() {
					v := r.DeriveKey(key, report.ErrorPercent)
					if s := lastSummary(r, key); s != nil {
						v = s.ErrorPercent
					}
					emit(key+" %Errors", v)
				}
			},
		}, nil

	case KindThroughput:
		return Projection{
			Title: "Throughput",
			Unit:  "requests/sec",
			Project: func(r *report.Report, emit Emit) {
				for _, key := range r.Keys() {
					emit(key+" Throughput", r.DeriveKey(key, report.Throughput))
				}
			},
		}, nil
	}

	return Projection{
		Title: "Response time",
		Unit:  "ms",
		Project: func(r *report.Report, emit Emit) {
			for _, key := range r.Keys() {
				lo, hi := r.DeriveKey(key, report.Min), r.DeriveKey(key, report.Max)
				if s := lastSummary(r, key); s != nil {
					lo, hi = float64(s.MinMs), float64(s.MaxMs)
				}
				emit(key+" Avg", r.DeriveKey(key, report.Average))
				emit(key+" Min", lo)
				emit(key+" Max", hi)
			}
		},
	}, nil
}

func lastSummary(r *report.Report, key string) *report.Summary {
	samples := r.Samples(key)
	if len(samples) == 0 {
		return nil
	}
	return samples[len(samples)-1].Summary
}

// Projection names accepted by ProjectionByName
const (
	ViewResponseTime = "response-time"
	ViewErrors       = "errors"
	ViewThroughput   = "throughput"
	ViewBytes        = "bytes"
	ViewTrendReport  = "trend-report"
	ViewPerEndpoint  = "per-endpoint"
	ViewPerSample    = "per-sample"
	ViewSummarizer   = "summarizer"
)

// Views lists the projection names in display order
var Views = []string{
	ViewResponseTime, ViewErrors, ViewThroughput, ViewBytes,
	ViewTrendReport, ViewPerEndpoint, ViewPerSample, ViewSummarizer,
}

// ProjectionByName returns the projection for a configured view. metric is
// used by the per-endpoint view, kind by the summarizer view.
func ProjectionByName(view string, metric report.Metric, kind ChartKind) (Projection, error) {
	switch view {
	case ViewResponseTime, "":
		return ResponseTime(), nil
	case ViewErrors:
		return Errors(), nil
	case ViewThroughput:
		return Throughput(), nil
	case ViewBytes:
		return BytesTransferred(), nil
	case ViewTrendReport:
		return TrendReport(), nil
	case ViewPerEndpoint:
		return PerEndpoint(metric), nil
	case ViewPerSample:
		return PerSample(), nil
	case ViewSummarizer:
		return Summarizer(kind)
	}
	return Projection{}, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownProjection, view, strings.Join(Views, ", "))
}
