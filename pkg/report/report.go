package report

import (
	"errors"
	"time"
)

// ErrReportNotFound is returned by stores when a run has no report with the requested name
var ErrReportNotFound = errors.New("report not found")

// Summary holds the pre-aggregated values a summarizer line carries
type Summary struct {
	SampleCount   int64   `json:"sample_count"`   // Requests covered by the summary line
	WindowSeconds float64 `json:"window_seconds"` // Length of the summary window
	MinMs         int64   `json:"min_ms"`
	MaxMs         int64   `json:"max_ms"`
	ErrorCount    int64   `json:"error_count"`
	ErrorPercent  float64 `json:"error_percent"` // 0..100
	Throughput    float64 `json:"throughput"`    // SampleCount / WindowSeconds, 0 for an empty window
}

// Sample is one measured observation for an endpoint key within a run
type Sample struct {
	Key        string    `json:"key"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"` // Best effort; zero when the log has none
	Success    bool      `json:"success"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	Summary    *Summary  `json:"summary,omitempty"` // Only set by the summarizer format
}

// Report is the parsed result of one log file for one run.
//
// Keys keep the order in which they were first seen. A Report is built by a
// single goroutine and is read-only afterwards; every derived value is
// recomputed on each call.
type Report struct {
	SourceName string
	Format     string

	keys    []string
	samples map[string][]Sample
}

// New returns an empty report for the given source file name
func New(sourceName, format string) *Report {
	return &Report{
		SourceName: sourceName,
		Format:     format,
		samples:    make(map[string][]Sample),
	}
}

// Put stores s as the only sample of its key, replacing earlier ones
func (r *Report) Put(s Sample) {
	r.track(s.Key)
	r.samples[s.Key] = []Sample{s}
}

// Add appends s to the samples of its key
func (r *Report) Add(s Sample) {
	r.track(s.Key)
	r.samples[s.Key] = append(r.samples[s.Key], s)
}

func (r *Report) track(key string) {
	if r.samples == nil {
		r.samples = make(map[string][]Sample)
	}
	if _, ok := r.samples[key]; !ok {
		r.keys = append(r.keys, key)
	}
}

// Keys returns the endpoint keys in first-seen order
func (r *Report) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Samples returns a copy of the samples recorded for key
func (r *Report) Samples(key string) []Sample {
	src := r.samples[key]
	out := make([]Sample, len(src))
	copy(out, src)
	return out
}

// All returns every sample, grouped by key in first-seen order
func (r *Report) All() []Sample {
	var out []Sample
	for _, k := range r.keys {
		out = append(out, r.samples[k]...)
	}
	return out
}

// Len returns the total number of samples
func (r *Report) Len() int {
	n := 0
	for _, s := range r.samples {
		n += len(s)
	}
	return n
}

// Derive computes metric over all samples of the report
func (r *Report) Derive(m Metric) float64 {
	return Derive(r.All(), m)
}

// DeriveKey computes metric over the samples of a single endpoint key
func (r *Report) DeriveKey(key string, m Metric) float64 {
	return Derive(r.samples[key], m)
}

// Average is shorthand for Derive(Average)
func (r *Report) Average() float64 { return r.Derive(Average) }

// Median is shorthand for Derive(Median)
func (r *Report) Median() float64 { return r.Derive(Median) }

// Percentile90 is shorthand for Derive(Percentile90)
func (r *Report) Percentile90() float64 { return r.Derive(Percentile90) }

// ErrorPercent is shorthand for Derive(ErrorPercent)
func (r *Report) ErrorPercent() float64 { return r.Derive(ErrorPercent) }
