// Package buildrange selects which historical runs take part in a trend.
//
// Runs are addressed by position: 1 is the oldest run, n the newest. A Range
// is a value built per request and never stored.
package buildrange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects how a Range is computed
type Mode string

const (
	ModeNone  Mode = "none"  // every run
	ModeCount Mode = "count" // the newest Count runs
	ModeNth   Mode = "nth"   // every run whose number is a multiple of Step
	ModeDate  Mode = "date"  // runs between FirstDay and LastDay
)

// DayLayout is the format of Config.FirstDay and Config.LastDay (dd/MM/yyyy)
const DayLayout = "02/01/2006"

var (
	// ErrUnsupportedMode is wrapped by ConfigError for an unknown mode
	ErrUnsupportedMode = errors.New("unsupported range mode")

	// ErrInvalidDate is wrapped by ConfigError for a day that does not parse
	ErrInvalidDate = errors.New("invalid date")
)

// ConfigError reports a range configuration that cannot be honoured
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("range %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is the user-facing range configuration
type Config struct {
	Mode     Mode   `yaml:"mode"`
	Count    int    `yaml:"count,omitempty"`
	Step     int    `yaml:"step,omitempty"`
	FirstDay string `yaml:"first_day,omitempty"`
	LastDay  string `yaml:"last_day,omitempty"`
}

// Range is an inclusive window of run positions plus a run-number step.
// First or Last below 1, or First after Last, make the range empty.
type Range struct {
	First int
	Last  int
	Step  int
}

// All selects every one of n runs
func All(n int) Range {
	return Range{First: 1, Last: n, Step: 1}
}

// ByCount selects the newest count of n runs; count <= 0 selects all
func ByCount(count, n int) Range {
	if count <= 0 {
		return All(n)
	}
	first := n - count
	if first > 0 {
		first++
	} else {
		first = 1
	}
	return Range{First: first, Last: n, Step: 1}
}

// ByStep selects every run whose number is a multiple of step; step <= 0 selects all
func ByStep(step, n int) Range {
	if step <= 0 {
		return All(n)
	}
	return Range{First: 1, Last: n, Step: step}
}

// ByDate scans timestamps (oldest first) from the newest run down. Every run
// after first moves the lower bound, so the oldest such run wins; the newest
// run before last fixes the upper bound. A bound that matches no run stays
// -1 and the range is empty.
func ByDate(first, last time.Time, timestamps []time.Time) Range {
	r := Range{First: -1, Last: -1, Step: 1}
	for pos := len(timestamps); pos >= 1; pos-- {
		ts := timestamps[pos-1]
		if ts.After(first) {
			r.First = pos
		}
		if r.Last < 0 && ts.Before(last) {
			r.Last = pos
		}
	}
	return r
}

// Select computes the range for cfg over runs with the given timestamps,
// oldest first
func Select(cfg Config, timestamps []time.Time) (Range, error) {
	n := len(timestamps)

	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return Range{}, err
	}

	switch mode {
	case ModeNone:
		return All(n), nil
	case ModeCount:
		return ByCount(cfg.Count, n), nil
	case ModeNth:
		return ByStep(cfg.Step, n), nil
	}

	if strings.TrimSpace(cfg.FirstDay) == "" && strings.TrimSpace(cfg.LastDay) == "" {
		return All(n), nil
	}

	first, last, err := DateBounds(cfg.FirstDay, cfg.LastDay)
	if err != nil {
		return Range{}, err
	}
	return ByDate(first, last, timestamps), nil
}

// ParseMode accepts the mode names plus "" and "all" for ModeNone and "step" for ModeNth
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "all":
		return ModeNone, nil
	case "count":
		return ModeCount, nil
	case "nth", "step":
		return ModeNth, nil
	case "date":
		return ModeDate, nil
	}
	return "", &ConfigError{Field: "mode", Value: s, Err: ErrUnsupportedMode}
}

// DateBounds parses the two days of a date range. The last day is moved to
// 23:59:59 so that it is inclusive. An empty first day means the beginning
// of time, an empty last day means no upper limit.
func DateBounds(firstDay, lastDay string) (time.Time, time.Time, error) {
	first := time.Time{}
	last := time.Date(9999, time.December, 31, 23, 59, 59, 0, time.Local)

	if s := strings.TrimSpace(firstDay); s != "" {
		d, err := ParseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, &ConfigError{Field: "first_day", Value: firstDay, Err: err}
		}
		first = d
	}

	if s := strings.TrimSpace(lastDay); s != "" {
		d, err := ParseDay(s)
		if err != nil {
			return time.Time{}, time.Time{}, &ConfigError{Field: "last_day", Value: lastDay, Err: err}
		}
		last = time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.Local)
	}

	return first, last, nil
}

// ParseDay parses a dd/MM/yyyy day in local time
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return d, nil
}

// Empty reports whether the range selects nothing
func (r Range) Empty() bool {
	return r.First < 1 || r.Last < 1 || r.First > r.Last
}

// Includes reports whether position lies inside the range
func (r Range) Includes(position int) bool {
	if r.Empty() {
		return false
	}
	return r.First <= position && position <= r.Last
}

// IncludedByStep reports whether runNumber is a multiple of the step
func (r Range) IncludedByStep(runNumber int) bool {
	if r.Step <= 1 {
		return true
	}
	return runNumber%r.Step == 0
}

func (r Range) String() string {
	if r.Empty() {
		return "empty"
	}
	if r.Step > 1 {
		return fmt.Sprintf("%d..%d step %d", r.First, r.Last, r.Step)
	}
	return fmt.Sprintf("%d..%d", r.First, r.Last)
}
