package quality

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/internal/load"
)

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	schema := "dq_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	defer pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")

	repo := NewRepository(pool, schema)
	notifier := &fakeNotifier{}
	evaluator := NewEvaluator(repo, notifier, defaultThresholds, nil)

	// nothing loaded yet
	outcome, err := evaluator.Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.IsSkipped())

	history, err := repo.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "skipped evaluations write nothing")

	today := time.Now()
	qty, price := 100.0, 7.5
	customer := "13085"
	rec := contracts.SalesRecord{
		Invoice: "489434", StockCode: "85048", Description: "LIGHTS",
		Quantity: &qty, InvoiceDate: &today, UnitPrice: &price, CustomerID: &customer, Country: "UK",
	}
	rec.Derive()

	_, err = load.NewLoader(pool, schema, nil).Load(ctx, []contracts.SalesRecord{rec})
	require.NoError(t, err)

	outcome, err = evaluator.Evaluate(ctx)
	require.NoError(t, err)
	require.Equal(t, contracts.OutcomeEvaluated, outcome.Kind)
	assert.Equal(t, contracts.StatusFail, outcome.Result.Status, "750 is below the minimum")
	assert.False(t, outcome.Result.CheckedAt.IsZero())
	assert.Len(t, notifier.messages, 1)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, contracts.StatusFail, latest.Status)
	assert.True(t, latest.DailyTotal.Equal(outcome.Result.DailyTotal))
	assert.Contains(t, latest.AlertMessage, "daily_total=750.00 out of range")
}
