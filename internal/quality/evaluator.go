package quality

import (
	"context"
	"time"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/config"
	"github.com/wonny/sales-etl/pkg/logger"
)

// Evaluator is the daily quality gate over the cleaned partition
type Evaluator struct {
	store      Store
	notifier   contracts.Notifier
	thresholds config.QualityConfig
	clock      func() time.Time
	logger     *logger.Logger
}

// NewEvaluator creates a new evaluator. notifier may be nil.
func NewEvaluator(store Store, notifier contracts.Notifier, thresholds config.QualityConfig, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	return &Evaluator{
		store:      store,
		notifier:   notifier,
		thresholds: thresholds,
		clock:      time.Now,
		logger:     log,
	}
}

// WithClock overrides the source of "today"
func (e *Evaluator) WithClock(clock func() time.Time) *Evaluator {
	e.clock = clock
	return e
}

// Evaluate checks today's slice of the cleaned partition.
// SKIPPED when the partition does not exist yet; otherwise exactly one
// monitor log row is written and a FAIL triggers exactly one notification.
func (e *Evaluator) Evaluate(ctx context.Context) (*contracts.CheckOutcome, error) {
	exists, err := e.store.CleanedExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		e.logger.Warn("Cleaned partition does not exist yet, skipping quality check")
		return contracts.Skipped("cleaned partition does not exist"), nil
	}

	now := e.clock()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	agg, err := e.store.DailyAggregate(ctx, day)
	if err != nil {
		return nil, err
	}

	status, alert := Judge(*agg, e.thresholds)
	result := &contracts.QualityCheckResult{
		CheckDate:            day,
		DailyTotal:           agg.DailyTotal,
		MissingCustomerRatio: agg.MissingRatio(),
		Status:               status,
		AlertMessage:         alert,
	}

	if status == contracts.StatusFail {
		e.notify(ctx, AlertPrefix+alert)
	}

	if err := e.store.EnsureMonitorLog(ctx); err != nil {
		return nil, err
	}
	if err := e.store.AppendResult(ctx, result); err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"check_date":  day.Format("2006-01-02"),
		"daily_total": agg.DailyTotal.StringFixed(2),
		"rows":        agg.RowCount,
		"missing":     percent(result.MissingCustomerRatio),
		"status":      string(status),
	}).Info("Quality check complete")

	return contracts.Evaluated(result), nil
}

// notify delivers the alert; failures are logged and never propagated
func (e *Evaluator) notify(ctx context.Context, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, message); err != nil {
		e.logger.WithError(err).Warn("Failed to deliver quality alert")
	}
}
