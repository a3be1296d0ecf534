package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32 // runs that fail before the first success
	calls    atomic.Int32
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "fake" }
func (j *fakeJob) Schedule() string    { return j.schedule }

func (j *fakeJob) Run(context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("upstream busy")
	}
	return nil
}

func newTestScheduler(retries int) *Scheduler {
	return New(time.UTC, logger.Nop(), WithRetry(retries, time.Millisecond))
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler(0)

	require.NoError(t, s.AddJob(&fakeJob{name: "b", schedule: "0 * * * * *"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "a", schedule: "@hourly"}), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "c", schedule: "every minute"}), "bad schedule")

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name())
	assert.Equal(t, "b", jobs[1].Name())
}

func TestScheduler_RunNowRetries(t *testing.T) {
	s := newTestScheduler(3)
	job := &fakeJob{name: "flaky", schedule: "@hourly", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)

	_, err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestScheduler_RunNowGivesUp(t *testing.T) {
	s := newTestScheduler(1)
	require.NoError(t, s.AddJob(&fakeJob{name: "down", schedule: "@hourly", failures: 100}))

	result, err := s.RunNow(context.Background(), "down")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "upstream busy", result.Error)

	stats := s.Stats()["down"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	require.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestScheduler_CancelledContextStopsRetrying(t *testing.T) {
	s := New(time.UTC, logger.Nop(), WithRetry(5, time.Hour))
	job := &fakeJob{name: "down", schedule: "@hourly", failures: 100}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.RunNow(ctx, "down")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestScheduler_HistoryAndStats(t *testing.T) {
	s := newTestScheduler(0)
	require.NoError(t, s.AddJob(&fakeJob{name: "once", schedule: "@hourly", failures: 1}))

	for i := 0; i < 4; i++ {
		_, err := s.RunNow(context.Background(), "once")
		require.NoError(t, err)
	}

	history, err := s.History("once")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.False(t, history[0].Success)
	assert.True(t, history[3].Success)

	stats := s.Stats()["once"]
	assert.Equal(t, 4, stats.TotalRuns)
	assert.Equal(t, 3, stats.SuccessCount)
	assert.Equal(t, 0.75, stats.SuccessRate)
	assert.Equal(t, "@hourly", stats.Schedule)
	require.NotNil(t, stats.LastSuccess)

	_, err = s.History("missing")
	assert.Error(t, err)
}

func TestJobHistory_Bounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{Attempts: i, Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Equal(t, 20, h.Results[0].Attempts)

	last, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, maxHistory+19, last.Attempts)
	assert.Equal(t, 0.5, h.SuccessRate())

	_, ok = (&JobHistory{}).Latest()
	assert.False(t, ok)
}
