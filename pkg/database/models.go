package database

import "time"

// ReportInfo describes a stored report without loading its samples
type ReportInfo struct {
	ID          int64
	RunNumber   int
	Name        string
	Format      string // 'summarizer'
	SampleCount int
	KeyCount    int
	CreatedAt   time.Time
}

// sampleRow mirrors one row of the samples table; the summary columns are
// NULL for samples that carry no summary
type sampleRow struct {
	Key           string
	DurationMs    int64
	Timestamp     *string
	Success       bool
	SizeBytes     int64
	SampleCount   *int64
	WindowSeconds *float64
	MinMs         *int64
	MaxMs         *int64
	ErrorCount    *int64
	ErrorPercent  *float64
	Throughput    *float64
}
