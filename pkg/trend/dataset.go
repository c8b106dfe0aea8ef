package trend

import (
	"encoding/json"
	"fmt"

	"github.com/mslinn/perftrend/pkg/buildrange"
)

// Point is one value of a series at a run label
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// SkippedRun records a run left out because its report could not be read
type SkippedRun struct {
	Run int   `json:"run"`
	Err error `json:"-"`
}

func (s SkippedRun) Error() string {
	return fmt.Sprintf("run %d: %v", s.Run, s.Err)
}

// Dataset holds named series of (label, value) points. Series names and
// labels keep the order in which they were first added.
type Dataset struct {
	Title   string
	Unit    string
	Report  string
	Range   buildrange.Range
	Skipped []SkippedRun

	names  []string
	labels []string
	series map[string][]Point
}

// NewDataset returns an empty dataset
func NewDataset(title, unit string) *Dataset {
	return &Dataset{Title: title, Unit: unit, series: make(map[string][]Point)}
}

// Add sets the value of series name at label. Adding the same pair twice
// keeps the latest value in its original place.
func (d *Dataset) Add(name, label string, value float64) {
	if d.series == nil {
		d.series = make(map[string][]Point)
	}

	points, ok := d.series[name]
	if !ok {
		d.names = append(d.names, name)
	}
	if !d.hasLabel(label) {
		d.labels = append(d.labels, label)
	}

	for i := range points {
		if points[i].Label == label {
			points[i].Value = value
			return
		}
	}
	d.series[name] = append(points, Point{Label: label, Value: value})
}

func (d *Dataset) hasLabel(label string) bool {
	for _, l := range d.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Names returns the series names
func (d *Dataset) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Labels returns every label used by any series
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.labels))
	copy(out, d.labels)
	return out
}

// Series returns the points of series name
func (d *Dataset) Series(name string) []Point {
	src := d.series[name]
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

// Value returns the value of series name at label
func (d *Dataset) Value(name, label string) (float64, bool) {
	for _, p := range d.series[name] {
		if p.Label == label {
			return p.Value, true
		}
	}
	return 0, false
}

// Empty reports whether no point was added
func (d *Dataset) Empty() bool {
	return len(d.names) == 0
}

type seriesJSON struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

type skippedJSON struct {
	Run   int    `json:"run"`
	Error string `json:"error"`
}

type datasetJSON struct {
	Title   string        `json:"title"`
	Unit    string        `json:"unit"`
	Report  string        `json:"report"`
	Range   string        `json:"range"`
	Labels  []string      `json:"labels"`
	Series  []seriesJSON  `json:"series"`
	Skipped []skippedJSON `json:"skipped,omitempty"`
}

// MarshalJSON encodes the series in order
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{
		Title:  d.Title,
		Unit:   d.Unit,
		Report: d.Report,
		Range:  d.Range.String(),
		Labels: d.Labels(),
		Series: make([]seriesJSON, 0, len(d.names)),
	}
	for _, name := range d.names {
		out.Series = append(out.Series, seriesJSON{Name: name, Points: d.Series(name)})
	}
	for _, s := range d.Skipped {
		out.Skipped = append(out.Skipped, skippedJSON{Run: s.Run, Error: s.Err.Error()})
	}
	return json.Marshal(out)
}
