package jobs

import (
	"context"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/logger"
)

// QualityChecker evaluates the cleaned partition without reloading it
type QualityChecker interface {
	Check(ctx context.Context) (*contracts.CheckOutcome, error)
}

// QualityJob re-runs the quality gate on its own schedule
type QualityJob struct {
	checker  QualityChecker
	schedule string
	logger   *logger.Logger
}

// NewQualityJob creates a new quality job
func NewQualityJob(checker QualityChecker, schedule string, log *logger.Logger) *QualityJob {
	if log == nil {
		log = logger.Nop()
	}
	return &QualityJob{checker: checker, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *QualityJob) Name() string {
	return "quality_check"
}

// Schedule returns the cron schedule
func (j *QualityJob) Schedule() string {
	return j.schedule
}

// Run executes the quality gate. A FAIL verdict is a successful run; only
// failing to evaluate is an error.
func (j *QualityJob) Run(ctx context.Context) error {
	outcome, err := j.checker.Check(ctx)
	if err != nil {
		return err
	}

	j.logger.WithField("outcome", outcome.String()).Info("Scheduled quality check finished")
	return nil
}
