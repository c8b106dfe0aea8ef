// Package history defines how past runs and their reports are stored and read back.
package history

import (
	"time"

	"github.com/mslinn/perftrend/pkg/report"
)

// Run is one execution of a performance test
type Run struct {
	Number    int       `json:"number"` // Monotonic; 0 asks the store for the next number
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// Reader is the read side of a run history
type Reader interface {
	// ListRuns returns every run, oldest first
	ListRuns() ([]Run, error)

	// Report returns the report stored under name for the run, or
	// report.ErrReportNotFound
	Report(runNumber int, name string) (*report.Report, error)

	// ReportNames returns the distinct report names over all runs, sorted
	ReportNames() ([]string, error)
}

// Writer is the write side of a run history
type Writer interface {
	// SaveRun stores run and returns it with its number assigned
	SaveRun(run Run) (Run, error)

	// SaveReport stores r as the report of the run, under r.SourceName,
	// replacing an earlier report with the same name
	SaveReport(runNumber int, r *report.Report) error
}

// Store is a full run history backend
type Store interface {
	Reader
	Writer
	Close() error
}

// Timestamps returns the run timestamps in the order of runs
func Timestamps(runs []Run) []time.Time {
	out := make([]time.Time, len(runs))
	for i, r := range runs {
		out[i] = r.Timestamp
	}
	return out
}
