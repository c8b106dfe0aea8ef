package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/report"
)

// Client is the part of the go-redis client the store uses
type Client interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	ZAdd(ctx context.Context, key string, members ...*redis.Z) *redis.IntCmd
	ZRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

const (
	runsKey        = "PERFTREND_RUNS"
	reportNamesKey = "PERFTREND_REPORT_NAMES"
)

func runKey(n int) string { return fmt.Sprintf("PERFTREND_RUN_%d", n) }

func runReportsKey(n int) string { return fmt.Sprintf("PERFTREND_RUN_%d_REPORTS", n) }

func reportKey(n int, name string) string { return fmt.Sprintf("PERFTREND_RUN_%d_REPORT_%s", n, name) }

// Redis keeps runs and reports as JSON values in Redis
type Redis struct {
	ctx context.Context
	r   Client
}

var _ history.Store = (*Redis)(nil)

// NewRedis wraps an existing client
func NewRedis(ctx context.Context, r Client) *Redis {
	return &Redis{
		ctx: ctx,
		r:   r,
	}
}

// Dial connects to a Redis server and checks that it answers
func Dial(ctx context.Context, addr, password string, db int) (*Redis, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, errors.Wrapf(err, "error connecting to redis at %s", addr)
	}
	return NewRedis(ctx, c), nil
}

// Close closes the underlying client
func (r *Redis) Close() error {
	return r.r.Close()
}

// SaveRun stores run; number 0 takes the number after the highest stored one
func (r *Redis) SaveRun(run history.Run) (history.Run, error) {
	if run.Number < 0 {
		return history.Run{}, errors.Errorf("invalid run number %d", run.Number)
	}

	if run.Number == 0 {
		last, err := r.r.ZRange(r.ctx, runsKey, -1, -1).Result()
		if err != nil {
			return history.Run{}, errors.Wrap(err, "error reading last run number")
		}
		run.Number = 1
		if len(last) == 1 {
			n, err := strconv.Atoi(last[0])
			if err != nil {
				return history.Run{}, errors.Wrapf(err, "error parsing run number %q", last[0])
			}
			run.Number = n + 1
		}
	}

	runData, err := json.Marshal(&run)
	if err != nil {
		return history.Run{}, errors.Wrap(err, "error marshalling run")
	}

	if _, err := r.r.Set(r.ctx, runKey(run.Number), string(runData), 0).Result(); err != nil {
		return history.Run{}, errors.Wrap(err, "error saving run data")
	}

	member := &redis.Z{Score: float64(run.Number), Member: strconv.Itoa(run.Number)}
	if _, err := r.r.ZAdd(r.ctx, runsKey, member).Result(); err != nil {
		return history.Run{}, errors.Wrap(err, "error saving run number")
	}

	return run, nil
}

// ListRuns returns the runs ordered by number
func (r *Redis) ListRuns() ([]history.Run, error) {
	numbers, err := r.r.ZRange(r.ctx, runsKey, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "error listing runs")
	}

	runs := make([]history.Run, 0, len(numbers))
	for _, member := range numbers {
		n, err := strconv.Atoi(member)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing run number %q", member)
		}

		runData, err := r.r.Get(r.ctx, runKey(n)).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "error getting run %d", n)
		}

		var run history.Run
		if err := json.Unmarshal([]byte(runData), &run); err != nil {
			return nil, errors.Wrapf(err, "error unmarshalling run %d", n)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// SaveReport stores rep under its source name, replacing an earlier one
func (r *Redis) SaveReport(runNumber int, rep *report.Report) error {
	if err := r.r.Get(r.ctx, runKey(runNumber)).Err(); err != nil {
		if err == redis.Nil {
			return errors.Errorf("run %d does not exist", runNumber)
		}
		return errors.Wrapf(err, "error checking run %d", runNumber)
	}

	reportData, err := json.Marshal(rep)
	if err != nil {
		return errors.Wrap(err, "error marshalling report")
	}

	if _, err := r.r.Set(r.ctx, reportKey(runNumber, rep.SourceName), string(reportData), 0).Result(); err != nil {
		return errors.Wrap(err, "error saving report data")
	}

	if _, err := r.r.SAdd(r.ctx, runReportsKey(runNumber), rep.SourceName).Result(); err != nil {
		return errors.Wrap(err, "error saving report name")
	}

	if _, err := r.r.SAdd(r.ctx, reportNamesKey, rep.SourceName).Result(); err != nil {
		return errors.Wrap(err, "error saving report name")
	}

	return nil
}

// Report loads the report stored under name for the run
func (r *Redis) Report(runNumber int, name string) (*report.Report, error) {
	reportData, err := r.r.Get(r.ctx, reportKey(runNumber, name)).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(report.ErrReportNotFound, "run %d, %q", runNumber, name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "error getting report data")
	}

	rep := report.New(name, "")
	if err := json.Unmarshal([]byte(reportData), rep); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling report")
	}

	return rep, nil
}

// ReportNames lists the distinct report names, sorted
func (r *Redis) ReportNames() ([]string, error) {
	names, err := r.r.SMembers(r.ctx, reportNamesKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "error listing report names")
	}
	sort.Strings(names)
	return names, nil
}

// RunReports lists the report names of one run, sorted
func (r *Redis) RunReports(runNumber int) ([]string, error) {
	names, err := r.r.SMembers(r.ctx, runReportsKey(runNumber)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "error listing run reports")
	}
	sort.Strings(names)
	return names, nil
}
