package history

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mslinn/perftrend/pkg/report"
)

// Memory is an in-process Store, used by tests and one-shot CLI runs
type Memory struct {
	mu      sync.RWMutex
	runs    map[int]Run
	reports map[int]map[string]*report.Report
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		runs:    make(map[int]Run),
		reports: make(map[int]map[string]*report.Report),
	}
}

// SaveRun implements Writer
func (m *Memory) SaveRun(run Run) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run.Number < 0 {
		return Run{}, fmt.Errorf("invalid run number %d", run.Number)
	}
	if run.Number == 0 {
		for n := range m.runs {
			if n > run.Number {
				run.Number = n
			}
		}
		run.Number++
	}
	m.runs[run.Number] = run
	return run, nil
}

// SaveReport implements Writer
func (m *Memory) SaveReport(runNumber int, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runNumber]; !ok {
		return fmt.Errorf("run %d does not exist", runNumber)
	}
	if m.reports[runNumber] == nil {
		m.reports[runNumber] = make(map[string]*report.Report)
	}
	m.reports[runNumber][r.SourceName] = r
	return nil
}

// ListRuns implements Reader
func (m *Memory) ListRuns() ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Number < runs[j].Number })
	return runs, nil
}

// Report implements Reader
func (m *Memory) Report(runNumber int, name string) (*report.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[runNumber][name]
	if !ok {
		return nil, fmt.Errorf("run %d, %q: %w", runNumber, name, report.ErrReportNotFound)
	}
	return r, nil
}

// ReportNames implements Reader
func (m *Memory) ReportNames() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	names := []string{}
	for _, byName := range m.reports {
		for name := range byName {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store
func (m *Memory) Close() error { return nil }
