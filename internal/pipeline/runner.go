package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/logger"
)

// Runner coordinates Extract → Transform → Load → Quality
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Runner struct {
	source     contracts.Source
	normalizer contracts.Normalizer
	loader     contracts.PartitionLoader
	gate       contracts.QualityGate
	publisher  contracts.OutcomePublisher

	stageTimeout time.Duration
	logger       *logger.Logger
}

// NewRunner creates a new runner
func NewRunner(
	source contracts.Source,
	normalizer contracts.Normalizer,
	loader contracts.PartitionLoader,
	gate contracts.QualityGate,
	log *logger.Logger,
) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		source:     source,
		normalizer: normalizer,
		loader:     loader,
		gate:       gate,
		logger:     log,
	}
}

// WithPublisher streams every quality outcome to p
func (r *Runner) WithPublisher(p contracts.OutcomePublisher) *Runner {
	r.publisher = p
	return r
}

// WithStageTimeout bounds each stage; zero means no bound
func (r *Runner) WithStageTimeout(d time.Duration) *Runner {
	r.stageTimeout = d
	return r
}

// Run executes the full pipeline once. The first failing stage aborts the
// run; the partial report is returned alongside a *contracts.StageError.
func (r *Runner) Run(ctx context.Context) (*contracts.RunReport, error) {
	report := &contracts.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := r.logger.WithRun(report.RunID)
	log.Info("Starting pipeline run")

	var table *contracts.RawTable
	err := r.stage(ctx, report, contracts.StageExtract, func(ctx context.Context) error {
		var err error
		table, err = r.source.Extract(ctx)
		return err
	})
	if err != nil {
		return r.fail(log, report, err)
	}
	report.RawRows = table.Len()

	var records []contracts.SalesRecord
	err = r.stage(ctx, report, contracts.StageTransform, func(context.Context) error {
		var err error
		records, report.Transform, err = r.normalizer.Normalize(table)
		return err
	})
	if err != nil {
		return r.fail(log, report, err)
	}

	err = r.stage(ctx, report, contracts.StageLoad, func(ctx context.Context) error {
		var err error
		report.Load, err = r.loader.Load(ctx, records)
		return err
	})
	if err != nil {
		return r.fail(log, report, err)
	}

	err = r.stage(ctx, report, contracts.StageQuality, func(ctx context.Context) error {
		var err error
		report.Quality, err = r.gate.Evaluate(ctx)
		return err
	})
	if err != nil {
		return r.fail(log, report, err)
	}
	r.publish(report.Quality)

	report.FinishedAt = time.Now()
	log.WithFields(map[string]interface{}{
		"raw_rows": report.RawRows,
		"staging":  report.Load.StagingRows,
		"cleaned":  report.Load.CleanedRows,
		"quality":  report.Quality.String(),
		"duration": report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("Pipeline run completed")

	return report, nil
}

// Check runs only the quality gate
func (r *Runner) Check(ctx context.Context) (*contracts.CheckOutcome, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	outcome, err := r.gate.Evaluate(ctx)
	if err != nil {
		return nil, &contracts.StageError{Stage: contracts.StageQuality, Err: err}
	}
	r.publish(outcome)
	return outcome, nil
}

// Preview extracts and transforms without persisting anything
func (r *Runner) Preview(ctx context.Context) ([]contracts.SalesRecord, *contracts.TransformSummary, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	table, err := r.source.Extract(ctx)
	if err != nil {
		return nil, nil, &contracts.StageError{Stage: contracts.StageExtract, Err: err}
	}

	records, summary, err := r.normalizer.Normalize(table)
	if err != nil {
		return nil, nil, &contracts.StageError{Stage: contracts.StageTransform, Err: err}
	}
	return records, summary, nil
}

func (r *Runner) stage(ctx context.Context, report *contracts.RunReport, stage contracts.Stage, fn func(context.Context) error) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	report.Timings = append(report.Timings, contracts.StageTiming{Stage: stage, Duration: time.Since(start)})

	if err != nil {
		return &contracts.StageError{Stage: stage, Err: err}
	}
	return nil
}

func (r *Runner) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.stageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.stageTimeout)
}

func (r *Runner) fail(log *logger.Logger, report *contracts.RunReport, err error) (*contracts.RunReport, error) {
	report.FinishedAt = time.Now()
	log.WithError(err).Error("Pipeline run failed")
	return report, err
}

func (r *Runner) publish(outcome *contracts.CheckOutcome) {
	if r.publisher != nil && outcome != nil {
		r.publisher.Publish(outcome)
	}
}
