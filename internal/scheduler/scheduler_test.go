package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	name     string
	schedule string
	calls    atomic.Int32
	run      func(ctx context.Context, call int32) error
}

func (j *testJob) Name() string     { return j.name }
func (j *testJob) Schedule() string { return j.schedule }

func (j *testJob) Run(ctx context.Context) error {
	call := j.calls.Add(1)
	if j.run == nil {
		return nil
	}
	return j.run(ctx, call)
}

func newTestScheduler() *Scheduler {
	return New(nil).WithRetry(2, time.Millisecond)
}

func TestAddJobRejectsDuplicatesAndBadSchedules(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&testJob{name: "a", schedule: "0 0 2 * * *"}))
	assert.Error(t, s.AddJob(&testJob{name: "a", schedule: "0 0 2 * * *"}))
	assert.Error(t, s.AddJob(&testJob{name: "b", schedule: "not a schedule"}))

	assert.Equal(t, []string{"a"}, s.GetAllJobs())
}

func TestRunNowRetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &testJob{name: "flaky", schedule: "@daily", run: func(_ context.Context, call int32) error {
		if call < 3 {
			return errors.New("connection reset")
		}
		return nil
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
}

func TestRunNowGivesUpAfterMaxRetries(t *testing.T) {
	s := newTestScheduler()
	job := &testJob{name: "broken", schedule: "@daily", run: func(context.Context, int32) error {
		return errors.New("still down")
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts, "first attempt plus two retries")
	assert.Equal(t, "still down", result.Error)

	history, err := s.GetJobHistory("broken")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, 0.0, history.SuccessRate())
}

func TestRunNowDoesNotRetryPermanentErrors(t *testing.T) {
	s := newTestScheduler()
	cause := errors.New("missing required columns")
	job := &testJob{name: "schema", schedule: "@daily", run: func(context.Context, int32) error {
		return Permanent(cause)
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "schema")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, result.Attempts)
}

func TestRunNowStopsRetryingWhenCancelled(t *testing.T) {
	s := New(nil).WithRetry(5, time.Hour)
	job := &testJob{name: "slow", schedule: "@daily", run: func(context.Context, int32) error {
		return errors.New("down")
	}}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.RunNow(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, result.Attempts)
}

func TestJobNeverOverlapsItself(t *testing.T) {
	s := newTestScheduler()
	started := make(chan struct{})
	release := make(chan struct{})
	job := &testJob{name: "long", schedule: "@daily", run: func(context.Context, int32) error {
		close(started)
		<-release
		return nil
	}}
	require.NoError(t, s.AddJob(job))

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "long")
		done <- err
	}()
	<-started

	_, err := s.RunNow(context.Background(), "long")
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.True(t, s.GetJobStats()["long"].Running)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestUnknownJob(t *testing.T) {
	s := newTestScheduler()

	_, err := s.RunNow(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.RunJob("nope"), ErrJobNotFound)
	_, err = s.GetJobHistory("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestJobStats(t *testing.T) {
	s := newTestScheduler()
	job := &testJob{name: "a", schedule: "0 0 2 * * *"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop()

	_, err := s.RunNow(context.Background(), "a")
	require.NoError(t, err)

	st := s.GetJobStats()["a"]
	assert.Equal(t, "0 0 2 * * *", st.Schedule)
	assert.Equal(t, 1, st.TotalRuns)
	assert.Equal(t, 1, st.SuccessCount)
	assert.Equal(t, 1.0, st.SuccessRate)
	require.NotNil(t, st.LastRun)
	require.NotNil(t, st.NextRun)
	assert.Equal(t, 2, st.NextRun.Hour())
}

func TestJobHistoryKeepsLastHundred(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{Attempts: i, Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.Equal(t, 50, h.Results[0].Attempts)

	latest := h.Latest(3)
	require.Len(t, latest, 3)
	assert.Equal(t, 149, latest[2].Attempts)
	assert.Equal(t, 50, h.Failures())
	assert.Empty(t, (&JobHistory{}).Latest(5))
}
