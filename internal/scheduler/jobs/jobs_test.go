package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/internal/extract"
	"github.com/wonny/sales-etl/internal/scheduler"
	"github.com/wonny/sales-etl/pkg/config"
	"github.com/wonny/sales-etl/pkg/redis"
)

type fakeRunner struct {
	calls int
	err   error
}

func (r *fakeRunner) Run(context.Context) (*contracts.RunReport, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &contracts.RunReport{RunID: "run-1", Quality: contracts.Skipped("no partition")}, nil
}

type fakeChecker struct {
	outcome *contracts.CheckOutcome
	err     error
}

func (c *fakeChecker) Check(context.Context) (*contracts.CheckOutcome, error) {
	return c.outcome, c.err
}

func TestPipelineJob(t *testing.T) {
	runner := &fakeRunner{}
	job := NewPipelineJob(runner, "0 0 2 * * *", nil)

	assert.Equal(t, "sales_pipeline", job.Name())
	assert.Equal(t, "0 0 2 * * *", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, runner.calls)
}

func TestPipelineJobWithDisabledLock(t *testing.T) {
	client, err := redis.New(config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	runner := &fakeRunner{}
	job := NewPipelineJob(runner, "@daily", nil).WithLock(redis.NewLocker(client, "sales-etl"), time.Hour)

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, runner.calls)
}

func TestPipelineJobClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"schema", &contracts.StageError{Stage: contracts.StageTransform, Err: &contracts.SchemaError{Missing: []string{"invoice"}}}, true},
		{"missing workbook", &contracts.StageError{Stage: contracts.StageExtract, Err: fmt.Errorf("%w: x.xlsx", extract.ErrSourceNotFound)}, true},
		{"missing sheet", fmt.Errorf("%w: Year 2011", extract.ErrSheetNotFound), true},
		{"database", &contracts.StageError{Stage: contracts.StageLoad, Err: &contracts.PersistenceError{Op: "commit", Err: errors.New("reset")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPipelineJob(&fakeRunner{err: tt.err}, "@daily", nil).Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.permanent, scheduler.IsPermanent(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestQualityJob(t *testing.T) {
	job := NewQualityJob(&fakeChecker{outcome: contracts.Evaluated(&contracts.QualityCheckResult{Status: contracts.StatusFail})}, "0 0 * * * *", nil)

	assert.Equal(t, "quality_check", job.Name())
	assert.NoError(t, job.Run(context.Background()), "a FAIL verdict is not a job failure")

	failing := NewQualityJob(&fakeChecker{err: errors.New("connection refused")}, "@hourly", nil)
	assert.Error(t, failing.Run(context.Background()))
}

func TestJobsRunUnderScheduler(t *testing.T) {
	s := scheduler.New(nil).WithRetry(3, time.Millisecond)
	runner := &fakeRunner{err: &contracts.SchemaError{Missing: []string{"invoice"}}}
	require.NoError(t, s.AddJob(NewPipelineJob(runner, "@daily", nil)))

	result, err := s.RunNow(context.Background(), "sales_pipeline")
	require.Error(t, err)
	assert.Equal(t, 1, result.Attempts, "schema errors are not retried")
	assert.Equal(t, 1, runner.calls)
}
