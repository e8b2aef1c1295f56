package load

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sales-etl/internal/contracts"
)

func record(invoice string, qty, price *float64) contracts.SalesRecord {
	date := time.Date(2009, 12, 1, 7, 45, 0, 0, time.UTC)
	customer := "13085"
	r := contracts.SalesRecord{
		Invoice:     invoice,
		StockCode:   "85048",
		Description: "LIGHTS",
		Quantity:    qty,
		InvoiceDate: &date,
		UnitPrice:   price,
		CustomerID:  &customer,
		Country:     "United Kingdom",
		SourceSheet: "Year 2009-2010",
	}
	r.Derive()
	return r
}

func f(v float64) *float64 { return &v }

func TestCleanedSubset(t *testing.T) {
	records := []contracts.SalesRecord{
		record("489434", f(12), f(6.95)),
		record("C489449", f(-1), f(1)),
		record("489435", f(-3), f(2)),
		record("489436", f(4), f(0)),
		record("489437", nil, f(1.25)),
		record("489438", f(2), nil),
		record("489439", f(0), f(1)),
	}

	cleaned := CleanedSubset(records)

	var invoices []string
	for _, r := range cleaned {
		invoices = append(invoices, r.Invoice)
	}
	assert.Equal(t, []string{"489434", "489437", "489439"}, invoices)

	for _, r := range cleaned {
		assert.False(t, r.IsReturn)
		assert.GreaterOrEqual(t, r.QuantityOrZero(), 0.0)
		assert.Greater(t, r.UnitPriceOrZero(), 0.0)
	}

	assert.Equal(t, cleaned, CleanedSubset(records), "same input, same subset")
}

func TestCleanedSubsetEmpty(t *testing.T) {
	assert.Empty(t, CleanedSubset(nil))
}

func TestRowValuesKeepsNulls(t *testing.T) {
	r := contracts.SalesRecord{Invoice: "1", Country: "UK"}
	r.Derive()

	values := rowValues(&r)
	require.Len(t, values, len(columns))
	assert.Nil(t, values[3], "quantity")
	assert.Nil(t, values[4], "invoice_date")
	assert.Nil(t, values[5], "unit_price")
	assert.Nil(t, values[6], "customer_id")
	assert.Nil(t, values[9], "extras")
	assert.Equal(t, 0.0, values[10])
	assert.Equal(t, false, values[11])
	assert.Nil(t, values[12], "year_month")
}

func TestRowValuesPopulated(t *testing.T) {
	r := record("489434", f(12), f(6.95))
	r.Extras = map[string]string{"Channel": "web"}

	values := rowValues(&r)
	assert.Equal(t, 12.0, values[3])
	assert.Equal(t, "13085", values[6])
	assert.Equal(t, map[string]string{"Channel": "web"}, values[9])
	assert.Equal(t, "2009-12", values[12])
}

// fakeTx records statements and fails the COPY into failTable
type fakeTx struct {
	pgx.Tx
	execs      []string
	copied     map[string]int
	failTable  string
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.execs = append(tx.execs, strings.TrimSpace(sql))
	return pgconn.CommandTag{}, nil
}

func (tx *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	name := table[len(table)-1]
	if name == tx.failTable {
		return 0, errors.New("disk full")
	}
	var n int
	for src.Next() {
		if _, err := src.Values(); err != nil {
			return 0, err
		}
		n++
	}
	tx.copied[name] = n
	return int64(n), nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
}

func (db *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	return db.tx, nil
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not used")
}

func TestLoadWritesBothPartitionsInOneTransaction(t *testing.T) {
	tx := &fakeTx{copied: map[string]int{}}
	loader := NewLoader(&fakeDB{tx: tx}, "etl", nil)

	records := []contracts.SalesRecord{
		record("489434", f(12), f(6.95)),
		record("C489449", f(-1), f(1)),
	}

	summary, err := loader.Load(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.StagingRows)
	assert.Equal(t, int64(1), summary.CleanedRows)
	assert.Equal(t, "etl", summary.Schema)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)

	require.Len(t, tx.execs, 5)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "etl"`, tx.execs[0])
	assert.Equal(t, `DROP TABLE IF EXISTS "etl"."sales_staging"`, tx.execs[1])
	assert.True(t, strings.HasPrefix(tx.execs[2], `CREATE TABLE "etl"."sales_staging"`))
	assert.Equal(t, `DROP TABLE IF EXISTS "etl"."sales_cleaned"`, tx.execs[3])
}

func TestLoadRollsBackOnCopyFailure(t *testing.T) {
	tx := &fakeTx{copied: map[string]int{}, failTable: CleanedTable}
	loader := NewLoader(&fakeDB{tx: tx}, "etl", nil)

	_, err := loader.Load(context.Background(), []contracts.SalesRecord{record("489434", f(12), f(6.95))})
	require.Error(t, err)

	var perr *contracts.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "copy into sales_cleaned", perr.Op)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestLoadBeginFailure(t *testing.T) {
	loader := NewLoader(&fakeDB{beginErr: errors.New("connection refused")}, "etl", nil)

	_, err := loader.Load(context.Background(), nil)

	var perr *contracts.PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "begin transaction", perr.Op)
}

func TestLoadIntegration(t *testing.T) {
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

	schema := fmt.Sprintf("etl_test_%s", strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
	defer pool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+pgx.Identifier{schema}.Sanitize()+" CASCADE")

	loader := NewLoader(pool, schema, nil)
	records := []contracts.SalesRecord{
		record("489434", f(12), f(6.95)),
		record("C489449", f(-1), f(1)),
		record("489437", nil, f(1.25)),
	}

	for i := 0; i < 2; i++ {
		summary, err := loader.Load(ctx, records)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.StagingRows)
		assert.Equal(t, int64(2), summary.CleanedRows)
	}

	counts, err := loader.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{StagingTable: 3, CleanedTable: 2}, counts)

	var nullQty int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{schema, StagingTable}.Sanitize()+" WHERE quantity IS NULL").Scan(&nullQty)
	require.NoError(t, err)
	assert.Equal(t, 1, nullQty, "null quantity is stored as NULL, not 0")
}
