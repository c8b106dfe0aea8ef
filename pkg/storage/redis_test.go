package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/report"
)

// fakeClient keeps strings, sets and sorted sets in maps
type fakeClient struct {
	values map[string]string
	sets   map[string]map[string]bool
	zsets  map[string]map[string]float64
	getErr error
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: map[string]string{},
		sets:   map[string]map[string]bool{},
		zsets:  map[string]map[string]float64{},
	}
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) SAdd(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	if f.sets[key] == nil {
		f.sets[key] = map[string]bool{}
	}
	var added int64
	for _, m := range members {
		s := m.(string)
		if !f.sets[key][s] {
			f.sets[key][s] = true
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeClient) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	out := []string{}
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeClient) ZAdd(_ context.Context, key string, members ...*redis.Z) *redis.IntCmd {
	if f.zsets[key] == nil {
		f.zsets[key] = map[string]float64{}
	}
	for _, z := range members {
		f.zsets[key][z.Member.(string)] = z.Score
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeClient) ZRange(_ context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	members := []string{}
	for m := range f.zsets[key] {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return f.zsets[key][members[i]] < f.zsets[key][members[j]] })

	n := int64(len(members))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return redis.NewStringSliceResult([]string{}, nil)
	}
	return redis.NewStringSliceResult(members[start:stop+1], nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestRedis_Runs(t *testing.T) {
	c := newFakeClient()
	s := NewRedis(context.Background(), c)
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := s.SaveRun(history.Run{Timestamp: t0})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)

	_, err = s.SaveRun(history.Run{Number: 9, Timestamp: t0.Add(time.Hour), Notes: "release"})
	require.NoError(t, err)

	next, err := s.SaveRun(history.Run{Timestamp: t0.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 10, next.Number)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{1, 9, 10}, []int{runs[0].Number, runs[1].Number, runs[2].Number})
	assert.Equal(t, "release", runs[1].Notes)
	assert.True(t, runs[2].Timestamp.Equal(t0.Add(2*time.Hour)))

	require.NoError(t, s.Close())
	assert.True(t, c.closed)
}

func TestRedis_Reports(t *testing.T) {
	s := NewRedis(context.Background(), newFakeClient())

	_, err := s.SaveRun(history.Run{Number: 1, Timestamp: time.Now()})
	require.NoError(t, err)

	r := report.New("summary.log", "summarizer")
	r.Put(report.Sample{Key: "login", DurationMs: 120, Success: true, Summary: &report.Summary{SampleCount: 80, WindowSeconds: 17.5}})
	r.Put(report.Sample{Key: "home", DurationMs: 60, Success: true})
	require.NoError(t, s.SaveReport(1, r))
	require.NoError(t, s.SaveReport(1, report.New("b.log", "summarizer")))

	got, err := s.Report(1, "summary.log")
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "home"}, got.Keys())
	assert.Equal(t, "summarizer", got.Format)
	assert.Equal(t, r.Average(), got.Average())

	names, err := s.ReportNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.log", "summary.log"}, names)

	perRun, err := s.RunReports(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.log", "summary.log"}, perRun)
}

func TestRedis_ReportNotFound(t *testing.T) {
	s := NewRedis(context.Background(), newFakeClient())

	_, err := s.Report(3, "missing.log")
	assert.True(t, errors.Is(err, report.ErrReportNotFound), "got %v", err)
}

func TestRedis_SaveReportUnknownRun(t *testing.T) {
	s := NewRedis(context.Background(), newFakeClient())

	err := s.SaveReport(3, report.New("x.log", "summarizer"))
	assert.Error(t, err)
}

func TestRedis_StoreErrorIsNotNotFound(t *testing.T) {
	c := newFakeClient()
	c.getErr = errors.New("connection refused")
	s := NewRedis(context.Background(), c)

	_, err := s.Report(1, "x.log")
	require.Error(t, err)
	assert.False(t, errors.Is(err, report.ErrReportNotFound))
	assert.Contains(t, err.Error(), "connection refused")
}
