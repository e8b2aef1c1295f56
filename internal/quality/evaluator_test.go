package quality

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/config"
)

type fakeStore struct {
	exists      bool
	agg         contracts.DailyAggregate
	existsErr   error
	aggErr      error
	appendErr   error
	ensured     int
	appended    []contracts.QualityCheckResult
	aggregateOn time.Time
}

func (s *fakeStore) CleanedExists(context.Context) (bool, error) {
	return s.exists, s.existsErr
}

func (s *fakeStore) DailyAggregate(_ context.Context, day time.Time) (*contracts.DailyAggregate, error) {
	if s.aggErr != nil {
		return nil, s.aggErr
	}
	s.aggregateOn = day
	agg := s.agg
	agg.Date = day
	return &agg, nil
}

func (s *fakeStore) EnsureMonitorLog(context.Context) error {
	s.ensured++
	return nil
}

func (s *fakeStore) AppendResult(_ context.Context, result *contracts.QualityCheckResult) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, *result)
	return nil
}

type fakeNotifier struct {
	messages []string
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

var defaultThresholds = config.QualityConfig{
	DailyRevenueMin:         1000,
	DailyRevenueMax:         5000000,
	MissingCustomerMaxRatio: 0.1,
}

func fixedClock() time.Time {
	return time.Date(2011, 12, 9, 14, 30, 0, 0, time.UTC)
}

func newTestEvaluator(store Store, notifier contracts.Notifier) *Evaluator {
	return NewEvaluator(store, notifier, defaultThresholds, nil).WithClock(fixedClock)
}

func TestEvaluateRevenueBelowMinimum(t *testing.T) {
	store := &fakeStore{
		exists: true,
		agg:    contracts.DailyAggregate{DailyTotal: decimal.NewFromInt(750), RowCount: 50, MissingCount: 1},
	}
	notifier := &fakeNotifier{}

	outcome, err := newTestEvaluator(store, notifier).Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, contracts.OutcomeEvaluated, outcome.Kind)

	result := outcome.Result
	assert.Equal(t, contracts.StatusFail, result.Status)
	assert.Contains(t, result.AlertMessage, "daily_total=750.00 out of range")
	assert.Equal(t, "daily_total=750.00 out of range [1,000,5,000,000]", result.AlertMessage)
	assert.InDelta(t, 0.02, result.MissingCustomerRatio, 1e-9)

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, AlertPrefix+result.AlertMessage, notifier.messages[0])

	require.Len(t, store.appended, 1)
	assert.Equal(t, contracts.StatusFail, store.appended[0].Status)
	assert.Equal(t, 1, store.ensured)
}

func TestEvaluateSkipsWithoutCleanedPartition(t *testing.T) {
	store := &fakeStore{exists: false}
	notifier := &fakeNotifier{}

	outcome, err := newTestEvaluator(store, notifier).Evaluate(context.Background())
	require.NoError(t, err)

	assert.True(t, outcome.IsSkipped())
	assert.Nil(t, outcome.Result)
	assert.Empty(t, store.appended)
	assert.Zero(t, store.ensured)
	assert.Empty(t, notifier.messages)
}

func TestEvaluatePass(t *testing.T) {
	store := &fakeStore{
		exists: true,
		agg:    contracts.DailyAggregate{DailyTotal: decimal.RequireFromString("25000.50"), RowCount: 10, MissingCount: 1},
	}
	notifier := &fakeNotifier{}

	outcome, err := newTestEvaluator(store, notifier).Evaluate(context.Background())
	require.NoError(t, err)

	assert.True(t, outcome.Result.Passed())
	assert.Empty(t, outcome.Result.AlertMessage)
	assert.Empty(t, notifier.messages)
	require.Len(t, store.appended, 1)
	assert.Equal(t, time.Date(2011, 12, 9, 0, 0, 0, 0, time.UTC), store.aggregateOn)
	assert.Equal(t, store.aggregateOn, store.appended[0].CheckDate)
}

func TestEvaluateMissingRatioExceeded(t *testing.T) {
	store := &fakeStore{
		exists: true,
		agg:    contracts.DailyAggregate{DailyTotal: decimal.NewFromInt(20000), RowCount: 100, MissingCount: 12},
	}
	notifier := &fakeNotifier{}

	outcome, err := newTestEvaluator(store, notifier).Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusFail, outcome.Result.Status)
	assert.Equal(t, "missing_customer_id_ratio=12.00% > 10.00%", outcome.Result.AlertMessage)
	assert.Len(t, notifier.messages, 1)
}

func TestEvaluateBothViolationsJoined(t *testing.T) {
	store := &fakeStore{
		exists: true,
		agg:    contracts.DailyAggregate{DailyTotal: decimal.RequireFromString("6000000.456"), RowCount: 4, MissingCount: 2},
	}
	notifier := &fakeNotifier{}

	outcome, err := newTestEvaluator(store, notifier).Evaluate(context.Background())
	require.NoError(t, err)

	parts := strings.Split(outcome.Result.AlertMessage, " | ")
	require.Len(t, parts, 2)
	assert.Equal(t, "daily_total=6,000,000.46 out of range [1,000,5,000,000]", parts[0])
	assert.Equal(t, "missing_customer_id_ratio=50.00% > 10.00%", parts[1])
	assert.Len(t, notifier.messages, 1, "one notification per evaluation, not per violation")
}

func TestEvaluateNoRowsToday(t *testing.T) {
	store := &fakeStore{exists: true}

	outcome, err := newTestEvaluator(store, nil).Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusFail, outcome.Result.Status, "zero revenue is below the minimum")
	assert.Equal(t, 0.0, outcome.Result.MissingCustomerRatio)
	assert.Equal(t, "daily_total=0.00 out of range [1,000,5,000,000]", outcome.Result.AlertMessage)
}

func TestEvaluateSwallowsNotifierError(t *testing.T) {
	store := &fakeStore{exists: true, agg: contracts.DailyAggregate{DailyTotal: decimal.NewFromInt(1)}}
	notifier := &fakeNotifier{err: &contracts.NotificationError{Channel: "slack", Err: errors.New("503")}}

	outcome, err := newTestEvaluator(store, notifier).Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusFail, outcome.Result.Status)
	assert.Len(t, store.appended, 1, "result is still logged")
}

func TestEvaluatePropagatesPersistenceErrors(t *testing.T) {
	perr := &contracts.PersistenceError{Op: "aggregate daily revenue", Err: errors.New("connection reset")}

	tests := []struct {
		name  string
		store *fakeStore
	}{
		{"lookup", &fakeStore{existsErr: perr}},
		{"aggregate", &fakeStore{exists: true, aggErr: perr}},
		{"append", &fakeStore{exists: true, agg: contracts.DailyAggregate{DailyTotal: decimal.NewFromInt(2000)}, appendErr: perr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := newTestEvaluator(tt.store, nil).Evaluate(context.Background())
			assert.Nil(t, outcome)

			var got *contracts.PersistenceError
			assert.True(t, errors.As(err, &got))
		})
	}
}

func TestJudgeBoundariesAreInclusive(t *testing.T) {
	tests := []struct {
		name  string
		total string
		want  contracts.QualityStatus
	}{
		{"at min", "1000", contracts.StatusPass},
		{"at max", "5000000", contracts.StatusPass},
		{"just below min", "999.99", contracts.StatusFail},
		{"just above max", "5000000.01", contracts.StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := contracts.DailyAggregate{DailyTotal: decimal.RequireFromString(tt.total), RowCount: 10, MissingCount: 1}
			status, _ := Judge(agg, defaultThresholds)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestGroupThousands(t *testing.T) {
	tests := map[string]string{
		"0":          "0",
		"750.00":     "750.00",
		"1000":       "1,000",
		"123456":     "123,456",
		"1234567.89": "1,234,567.89",
		"-1234.50":   "-1,234.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, groupThousands(in), in)
	}
}
