// Package trend projects the reports of a selected window of runs into
// named series keyed by run label.
//
// Nothing is cached: every call reads the store and recomputes every
// derived value.
package trend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mslinn/perftrend/pkg/buildrange"
	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/report"
)

// ErrReportNameRequired is returned when no report name was given and the
// history holds more than one
var ErrReportNameRequired = errors.New("report name required")

// Options tunes Build
type Options struct {
	// OldestFirst walks runs oldest to newest; labels then appear in
	// chronological order
	OldestFirst bool

	Logger *zap.Logger
}

// Build walks runs (oldest first, as returned by history.Reader.ListRuns)
// and projects the report named reportName of every run that rng selects.
// The position of runs[i] is i+1. A run without the report is left out
// without shifting the labels of the others: the label is the run number.
func Build(rng buildrange.Range, runs []history.Run, src history.Reader, reportName string, proj Projection, opts *Options) *Dataset {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ds := NewDataset(proj.Title, proj.Unit)
	ds.Report = reportName
	ds.Range = rng

	visit := func(i int) {
		run := runs[i]
		if !rng.Includes(i+1) || !rng.IncludedByStep(run.Number) {
			return
		}

		r, err := src.Report(run.Number, reportName)
		if errors.Is(err, report.ErrReportNotFound) {
			logger.Debug("run has no such report", zap.Int("run", run.Number), zap.String("report", reportName))
			return
		}
		if err != nil {
			logger.Warn("skipping run", zap.Int("run", run.Number), zap.String("report", reportName), zap.Error(err))
			ds.Skipped = append(ds.Skipped, SkippedRun{Run: run.Number, Err: err})
			return
		}

		label := strconv.Itoa(run.Number)
		proj.Project(r, func(series string, v float64) {
			ds.Add(series, label, v)
		})
	}

	if opts.OldestFirst {
		for i := range runs {
			visit(i)
		}
	} else {
		for i := len(runs) - 1; i >= 0; i-- {
			visit(i)
		}
	}

	return ds
}

// BuildMetrics is Build with one series per metric, newest run first
func BuildMetrics(rng buildrange.Range, runs []history.Run, src history.Reader, reportName string, metrics ...report.Metric) *Dataset {
	return Build(rng, runs, src, reportName, Metrics(metrics...), nil)
}

// ResolveReportName returns requested when set, otherwise the only name available
func ResolveReportName(requested string, names []string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if len(names) == 1 {
		return names[0], nil
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no reports stored", ErrReportNameRequired)
	}
	return "", fmt.Errorf("%w: choose one of %s", ErrReportNameRequired, strings.Join(names, ", "))
}

// Request describes one trend query
type Request struct {
	Report     string
	Range      buildrange.Config
	Projection Projection
	Options    Options
}

// Analyze lists the runs of reader, resolves the report name, selects the
// range and builds the dataset. Only configuration errors and a failing
// run listing abort; unreadable reports end up in Dataset.Skipped.
func Analyze(reader history.Reader, req Request) (*Dataset, error) {
	runs, err := reader.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	names, err := reader.ReportNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list report names: %w", err)
	}

	name, err := ResolveReportName(req.Report, names)
	if err != nil {
		return nil, err
	}

	rng, err := buildrange.Select(req.Range, history.Timestamps(runs))
	if err != nil {
		return nil, err
	}

	if req.Projection.Project == nil {
		req.Projection = ResponseTime()
	}

	opts := req.Options
	return Build(rng, runs, reader, name, req.Projection, &opts), nil
}
