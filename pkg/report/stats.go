package report

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric identifies a value derived from a set of samples
type Metric int

const (
	Average Metric = iota
	Median
	Percentile90
	Min
	Max
	ErrorPercent
	ErrorCount
	Throughput
	BytesTransferred
)

var metricNames = map[Metric]string{
	Average:          "average",
	Median:           "median",
	Percentile90:     "p90",
	Min:              "min",
	Max:              "max",
	ErrorPercent:     "error_percent",
	ErrorCount:       "error_count",
	Throughput:       "throughput",
	BytesTransferred: "bytes",
}

// String returns the configuration name of the metric
func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("metric(%d)", int(m))
}

// ParseMetric converts a configuration name into a Metric
func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range metricNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// Derive computes metric over samples. Every call works on fresh copies, so
// concurrent calls on the same slice are safe.
func Derive(samples []Sample, m Metric) float64 {
	if len(samples) == 0 {
		return 0
	}

	switch m {
	case Average:
		return stat.Mean(durations(samples), nil)
	case Median:
		return median(sortedDurations(samples))
	case Percentile90:
		return percentile90(sortedDurations(samples))
	case Min:
		return floats.Min(durations(samples))
	case Max:
		return floats.Max(durations(samples))
	case ErrorPercent:
		return 100 * float64(countErrors(samples)) / float64(len(samples))
	case ErrorCount:
		return float64(countErrors(samples))
	case Throughput:
		var tp []float64
		for _, s := range samples {
			if s.Summary != nil {
				tp = append(tp, s.Summary.Throughput)
			}
		}
		if len(tp) == 0 {
			return 0
		}
		return stat.Mean(tp, nil)
	case BytesTransferred:
		sizes := make([]float64, len(samples))
		for i, s := range samples {
			sizes[i] = float64(s.SizeBytes)
		}
		return stat.Mean(sizes, nil)
	}
	return 0
}

// SortByDuration returns a copy of samples in ascending duration order.
// Samples with equal durations keep their original order.
func SortByDuration(samples []Sample) []Sample {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DurationMs < sorted[j].DurationMs
	})
	return sorted
}

func durations(samples []Sample) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s.DurationMs)
	}
	return values
}

func sortedDurations(samples []Sample) []float64 {
	return durations(SortByDuration(samples))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// percentile90 picks the element at ceil(0.9*n)-1, which is the empirical
// quantile definition.
func percentile90(sorted []float64) float64 {
	return stat.Quantile(0.9, stat.Empirical, sorted, nil)
}

func countErrors(samples []Sample) int {
	n := 0
	for _, s := range samples {
		if !s.Success {
			n++
		}
	}
	return n
}
