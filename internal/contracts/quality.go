package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// QualityStatus is the verdict of an evaluated quality check
type QualityStatus string

const (
	StatusPass QualityStatus = "PASS"
	StatusFail QualityStatus = "FAIL"
)

// OutcomeKind separates "not ready yet" from an actual verdict
type OutcomeKind string

const (
	OutcomeSkipped   OutcomeKind = "SKIPPED"
	OutcomeEvaluated OutcomeKind = "EVALUATED"
)

// DailyAggregate is what the quality gate reads back from the cleaned partition
type DailyAggregate struct {
	Date         time.Time
	DailyTotal   decimal.Decimal
	RowCount     int64
	MissingCount int64
}

// MissingRatio returns missing/rows, 0 when there are no rows
func (a DailyAggregate) MissingRatio() float64 {
	if a.RowCount == 0 {
		return 0
	}
	return float64(a.MissingCount) / float64(a.RowCount)
}

// QualityCheckResult is one row of the monitor log. Immutable once written.
// ⭐ SSOT: 품질 검증 결과 형식
type QualityCheckResult struct {
	CheckedAt            time.Time       `json:"check_ts,omitempty"`
	CheckDate            time.Time       `json:"check_date"`
	DailyTotal           decimal.Decimal `json:"daily_total"`
	MissingCustomerRatio float64         `json:"missing_customer_ratio"`
	Status               QualityStatus   `json:"status"`
	AlertMessage         string          `json:"alert_message"`
}

// Passed reports whether the result is PASS
func (r *QualityCheckResult) Passed() bool {
	return r.Status == StatusPass
}

// CheckOutcome is the tagged result of one evaluator run.
// Result is set only for OutcomeEvaluated; Reason only for OutcomeSkipped.
type CheckOutcome struct {
	Kind   OutcomeKind         `json:"kind"`
	Result *QualityCheckResult `json:"result,omitempty"`
	Reason string              `json:"reason,omitempty"`
}

// Skipped builds a skipped outcome
func Skipped(reason string) *CheckOutcome {
	return &CheckOutcome{Kind: OutcomeSkipped, Reason: reason}
}

// Evaluated builds an evaluated outcome
func Evaluated(result *QualityCheckResult) *CheckOutcome {
	return &CheckOutcome{Kind: OutcomeEvaluated, Result: result}
}

// IsSkipped reports whether the gate did not run
func (o *CheckOutcome) IsSkipped() bool {
	return o.Kind == OutcomeSkipped
}

// String renders the outcome for CLI output
func (o *CheckOutcome) String() string {
	if o.IsSkipped() {
		return string(OutcomeSkipped)
	}
	return string(o.Result.Status)
}
