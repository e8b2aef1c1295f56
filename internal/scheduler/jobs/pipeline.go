package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/internal/extract"
	"github.com/wonny/sales-etl/internal/scheduler"
	"github.com/wonny/sales-etl/pkg/logger"
	"github.com/wonny/sales-etl/pkg/redis"
)

// PipelineRunner runs the full ETL once
type PipelineRunner interface {
	Run(ctx context.Context) (*contracts.RunReport, error)
}

// PipelineJob runs extract, transform, load and the quality gate
type PipelineJob struct {
	runner   PipelineRunner
	schedule string
	locker   *redis.Locker
	lockTTL  time.Duration
	logger   *logger.Logger
}

// NewPipelineJob creates a new pipeline job
func NewPipelineJob(runner PipelineRunner, schedule string, log *logger.Logger) *PipelineJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PipelineJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// WithLock guards runs with a distributed lock so that two instances never
// replace the partitions at the same time
func (j *PipelineJob) WithLock(locker *redis.Locker, ttl time.Duration) *PipelineJob {
	j.locker = locker
	j.lockTTL = ttl
	return j
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "sales_pipeline"
}

// Schedule returns the cron schedule (default daily at 02:00)
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline
func (j *PipelineJob) Run(ctx context.Context) error {
	if j.locker != nil {
		lock, err := j.locker.Acquire(ctx, j.Name(), j.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			j.logger.Info("Another instance is running the pipeline, skipping")
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(releaseCtx); err != nil {
				j.logger.WithError(err).Warn("Failed to release pipeline lock")
			}
		}()
	}

	report, err := j.runner.Run(ctx)
	if err != nil {
		if isPermanent(err) {
			return scheduler.Permanent(err)
		}
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  report.RunID,
		"quality": report.Quality.String(),
	}).Info("Scheduled pipeline run finished")

	return nil
}

// isPermanent reports errors that a retry a minute later cannot fix
func isPermanent(err error) bool {
	var schemaErr *contracts.SchemaError
	return errors.As(err, &schemaErr) ||
		errors.Is(err, extract.ErrSourceNotFound) ||
		errors.Is(err, extract.ErrSheetNotFound)
}
