package trend

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mslinn/perftrend/pkg/buildrange"
	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/report"
)

// newHistory stores runs 1..5, one day apart. Every run except 3 has a
// "summary.log" report whose single endpoint averages 10*run ms.
func newHistory(t *testing.T) (*history.Memory, []history.Run) {
	t.Helper()
	m := history.NewMemory()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)

	for n := 1; n <= 5; n++ {
		_, err := m.SaveRun(history.Run{Number: n, Timestamp: t0.AddDate(0, 0, n-1)})
		require.NoError(t, err)
		if n == 3 {
			continue
		}
		r := report.New("summary.log", "summarizer")
		r.Put(report.Sample{Key: "login", DurationMs: int64(10 * n), Success: true})
		require.NoError(t, m.SaveReport(n, r))
	}

	runs, err := m.ListRuns()
	require.NoError(t, err)
	return m, runs
}

func TestBuild_MissingReportDoesNotShiftLabels(t *testing.T) {
	m, runs := newHistory(t)

	ds := BuildMetrics(buildrange.All(len(runs)), runs, m, "summary.log", report.Average)

	assert.Equal(t, []string{"Average"}, ds.Names())
	assert.Equal(t, []string{"5", "4", "2", "1"}, ds.Labels())
	v, ok := ds.Value("Average", "4")
	require.True(t, ok)
	assert.Equal(t, float64(40), v)
	_, ok = ds.Value("Average", "3")
	assert.False(t, ok)
	assert.Empty(t, ds.Skipped)
}

func TestBuild_RangeSelection(t *testing.T) {
	m, runs := newHistory(t)

	tests := []struct {
		name string
		rng  buildrange.Range
		opts *Options
		want []string
	}{
		{"newest two", buildrange.ByCount(2, len(runs)), nil, []string{"5", "4"}},
		{"count covering the gap", buildrange.ByCount(3, len(runs)), nil, []string{"5", "4"}},
		{"every second run", buildrange.ByStep(2, len(runs)), nil, []string{"4", "2"}},
		{"oldest first", buildrange.All(len(runs)), &Options{OldestFirst: true}, []string{"1", "2", "4", "5"}},
		{"empty range", buildrange.Range{First: -1, Last: 5, Step: 1}, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Build(tt.rng, runs, m, "summary.log", Metrics(report.Average), tt.opts)
			assert.Equal(t, tt.want, ds.Labels())
		})
	}
}

type failingReader struct {
	history.Reader
	failRun int
}

func (f failingReader) Report(run int, name string) (*report.Report, error) {
	if run == f.failRun {
		return nil, errors.New("disk on fire")
	}
	return f.Reader.Report(run, name)
}

func TestBuild_StoreErrorSkipsRun(t *testing.T) {
	m, runs := newHistory(t)

	ds := Build(buildrange.All(len(runs)), runs, failingReader{Reader: m, failRun: 4}, "summary.log", ResponseTime(), nil)

	assert.Equal(t, []string{"5", "2", "1"}, ds.Labels())
	require.Len(t, ds.Skipped, 1)
	assert.Equal(t, 4, ds.Skipped[0].Run)
	assert.Contains(t, ds.Skipped[0].Error(), "disk on fire")
}

func TestProjections(t *testing.T) {
	r := report.New("x.log", "")
	r.Add(report.Sample{Key: "a", DurationMs: 30, Success: true, SizeBytes: 2048})
	r.Add(report.Sample{Key: "b", DurationMs: 10, Success: false, SizeBytes: 1024})
	r.Add(report.Sample{Key: "c", DurationMs: 20, Success: true, SizeBytes: 3072})

	collect := func(p Projection) *Dataset {
		ds := NewDataset(p.Title, p.Unit)
		p.Project(r, func(s string, v float64) { ds.Add(s, "1", v) })
		return ds
	}

	t.Run("response time", func(t *testing.T) {
		ds := collect(ResponseTime())
		assert.Equal(t, []string{"Median", "Average", "90% Line"}, ds.Names())
		assert.Equal(t, "ms", ds.Unit)
	})

	t.Run("errors", func(t *testing.T) {
		ds := collect(Errors())
		v, _ := ds.Value("Percentage of errors", "1")
		assert.InDelta(t, 33.333, v, 0.001)
		assert.Equal(t, "%", ds.Unit)
	})

	t.Run("bytes in KB", func(t *testing.T) {
		ds := collect(BytesTransferred())
		v, _ := ds.Value("Bytes transferred", "1")
		assert.Equal(t, float64(2), v)
	})

	t.Run("per sample sorted by duration", func(t *testing.T) {
		ds := collect(PerSample())
		assert.Equal(t, []string{"b", "c", "a"}, ds.Names())
		v, _ := ds.Value("b", "1")
		assert.Zero(t, v, "failed sample is plotted as 0")
		v, _ = ds.Value("a", "1")
		assert.Equal(t, float64(30), v)
	})

	t.Run("per endpoint", func(t *testing.T) {
		ds := collect(PerEndpoint(report.Max))
		assert.Equal(t, []string{"a", "b", "c"}, ds.Names())
		v, _ := ds.Value("c", "1")
		assert.Equal(t, float64(20), v)
	})
}

func TestTrendReportRounds(t *testing.T) {
	r := report.New("x.log", "")
	r.Add(report.Sample{Key: "a", DurationMs: 1, Success: true})
	r.Add(report.Sample{Key: "a", DurationMs: 2, Success: true})
	r.Add(report.Sample{Key: "a", DurationMs: 2, Success: false})

	got := map[string]float64{}
	TrendReport().Project(r, func(s string, v float64) { got[s] = v })

	assert.Equal(t, map[string]float64{
		"Average":              2, // 1.67
		"Median":               2,
		"90% Line":             2,
		"Minimum":              1,
		"Maximum":              2,
		"Percentage of errors": 33,
		"Errors":               1,
	}, got)
}

func TestSummarizerProjection(t *testing.T) {
	r := report.New("summary.log", "summarizer")
	r.Put(report.Sample{Key: "login", DurationMs: 120, Success: true, Summary: &report.Summary{
		SampleCount: 80, WindowSeconds: 17.5, MinMs: 10, MaxMs: 900, ErrorCount: 4, ErrorPercent: 5, Throughput: 80 / 17.5,
	}})
	r.Put(report.Sample{Key: "search", DurationMs: 60, Success: true, Summary: &report.Summary{
		SampleCount: 10, WindowSeconds: 5, MinMs: 20, MaxMs: 90, Throughput: 2,
	}})

	collect := func(kind ChartKind) map[string]float64 {
		p, err := Summarizer(kind)
		require.NoError(t, err)
		got := map[string]float64{}
		p.Project(r, func(s string, v float64) { got[s] = v })
		return got
	}

	assert.Equal(t, map[string]float64{
		"login Avg": 120, "login Min": 10, "login Max": 900,
		"search Avg": 60, "search Min": 20, "search Max": 90,
	}, collect(KindResponseTime))
	assert.Equal(t, map[string]float64{"login %Errors": 5, "search %Errors": 0}, collect(KindError))

	tp := collect("Throughput")
	assert.InDelta(t, 4.571428, tp["login Throughput"], 1e-6)
	assert.Equal(t, float64(2), tp["search Throughput"])

	_, err := Summarizer("latency")
	assert.ErrorIs(t, err, ErrUnknownChartKind)
}

func TestResolveReportName(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		names     []string
		want      string
		wantErr   bool
	}{
		{"explicit", "b.log", []string{"a.log", "b.log"}, "b.log", false},
		{"single default", "", []string{"a.log"}, "a.log", false},
		{"ambiguous", "", []string{"a.log", "b.log"}, "", true},
		{"none stored", "", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveReportName(tt.requested, tt.names)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrReportNameRequired)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze(t *testing.T) {
	m, _ := newHistory(t)

	ds, err := Analyze(m, Request{
		Range:      buildrange.Config{Mode: buildrange.ModeCount, Count: 2},
		Projection: Metrics(report.Average),
	})
	require.NoError(t, err)
	assert.Equal(t, "summary.log", ds.Report)
	assert.Equal(t, buildrange.Range{First: 4, Last: 5, Step: 1}, ds.Range)
	assert.Equal(t, []string{"5", "4"}, ds.Labels())

	_, err = Analyze(m, Request{Range: buildrange.Config{Mode: "fortnightly"}})
	assert.ErrorIs(t, err, buildrange.ErrUnsupportedMode)

	require.NoError(t, m.SaveReport(3, report.New("other.log", "summarizer")))
	_, err = Analyze(m, Request{})
	assert.ErrorIs(t, err, ErrReportNameRequired)

	ds, err = Analyze(m, Request{Report: "summary.log"})
	require.NoError(t, err)
	assert.Equal(t, "Response time", ds.Title)
	assert.Equal(t, []string{"5", "4", "2", "1"}, ds.Labels())
}

func TestProjectionByName(t *testing.T) {
	for _, view := range Views {
		_, err := ProjectionByName(view, report.Average, KindResponseTime)
		assert.NoError(t, err, view)
	}

	_, err := ProjectionByName("pie", report.Average, KindResponseTime)
	assert.ErrorIs(t, err, ErrUnknownProjection)

	_, err = ProjectionByName(ViewSummarizer, report.Average, "bogus")
	assert.ErrorIs(t, err, ErrUnknownChartKind)
}

func TestDataset_AddReplacesValue(t *testing.T) {
	ds := NewDataset("t", "ms")
	ds.Add("a", "1", 1)
	ds.Add("b", "2", 2)
	ds.Add("a", "1", 3)

	assert.Equal(t, []Point{{Label: "1", Value: 3}}, ds.Series("a"))
	assert.Equal(t, []string{"1", "2"}, ds.Labels())
	assert.False(t, ds.Empty())
	assert.True(t, NewDataset("", "").Empty())
}
