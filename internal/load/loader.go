package load

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/logger"
)

// Partition table names, created under the configured schema
const (
	StagingTable = "sales_staging"
	CleanedTable = "sales_cleaned"
)

// DB is the subset of *pgxpool.Pool the loader needs
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// columns is the physical layout of both partitions, in COPY order
var columns = []string{
	"invoice", "stock_code", "description", "quantity", "invoice_date", "unit_price",
	"customer_id", "country", "source_sheet", "extras", "total_amount", "is_return", "year_month",
}

const tableDDL = `
	CREATE TABLE %s (
		invoice       TEXT,
		stock_code    TEXT,
		description   TEXT,
		quantity      DOUBLE PRECISION,
		invoice_date  TIMESTAMP,
		unit_price    DOUBLE PRECISION,
		customer_id   TEXT,
		country       TEXT,
		source_sheet  TEXT,
		extras        JSONB,
		total_amount  DOUBLE PRECISION NOT NULL,
		is_return     BOOLEAN NOT NULL,
		year_month    TEXT
	)
`

// Loader replaces the staging and cleaned partitions in one transaction
// ⭐ SSOT: 파티션 저장은 여기서만
type Loader struct {
	db     DB
	schema string
	logger *logger.Logger
}

// NewLoader creates a new loader writing into schema
func NewLoader(db DB, schema string, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{db: db, schema: schema, logger: log}
}

// Load writes every record to staging and the cleaned subset to cleaned.
// Both partitions are dropped and recreated inside a single transaction, so
// a reader sees either the previous pair or the new pair, never a mix.
func (l *Loader) Load(ctx context.Context, records []contracts.SalesRecord) (*contracts.LoadSummary, error) {
	start := time.Now()
	cleaned := CleanedSubset(records)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return nil, &contracts.PersistenceError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	schemaSQL := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{l.schema}.Sanitize()
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return nil, &contracts.PersistenceError{Op: "create schema " + l.schema, Err: err}
	}

	stagingRows, err := l.replace(ctx, tx, StagingTable, records)
	if err != nil {
		return nil, err
	}

	cleanedRows, err := l.replace(ctx, tx, CleanedTable, cleaned)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &contracts.PersistenceError{Op: "commit", Err: err}
	}

	summary := &contracts.LoadSummary{
		Schema:      l.schema,
		StagingRows: stagingRows,
		CleanedRows: cleanedRows,
	}

	l.logger.WithFields(map[string]interface{}{
		"schema":   l.schema,
		"staging":  stagingRows,
		"cleaned":  cleanedRows,
		"duration": time.Since(start).String(),
	}).Info("Partitions replaced")

	return summary, nil
}

// replace drops and recreates one partition, then bulk copies rows into it
func (l *Loader) replace(ctx context.Context, tx pgx.Tx, table string, records []contracts.SalesRecord) (int64, error) {
	ident := pgx.Identifier{l.schema, table}
	name := ident.Sanitize()

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return 0, &contracts.PersistenceError{Op: "drop " + table, Err: err}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(tableDDL, name)); err != nil {
		return 0, &contracts.PersistenceError{Op: "create " + table, Err: err}
	}

	if len(records) == 0 {
		return 0, nil
	}

	n, err := tx.CopyFrom(ctx, ident, columns, pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		return rowValues(&records[i]), nil
	}))
	if err != nil {
		return 0, &contracts.PersistenceError{Op: "copy into " + table, Err: err}
	}

	return n, nil
}

// Counts returns the row count of each partition; absent partitions are omitted
func (l *Loader) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, 2)
	for _, table := range []string{StagingTable, CleanedTable} {
		ident := pgx.Identifier{l.schema, table}

		var exists bool
		err := l.db.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ident.Sanitize()).Scan(&exists)
		if err != nil {
			return nil, &contracts.PersistenceError{Op: "lookup " + table, Err: err}
		}
		if !exists {
			continue
		}

		var n int64
		if err := l.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+ident.Sanitize()).Scan(&n); err != nil {
			return nil, &contracts.PersistenceError{Op: "count " + table, Err: err}
		}
		counts[table] = n
	}
	return counts, nil
}

// rowValues lays a record out in column order. Nulls stay SQL NULL.
func rowValues(r *contracts.SalesRecord) []any {
	values := make([]any, 0, len(columns))
	values = append(values, r.Invoice, r.StockCode, r.Description)
	values = append(values, nullable(r.Quantity), nullableTime(r.InvoiceDate), nullable(r.UnitPrice))

	var customer any
	if r.CustomerID != nil {
		customer = *r.CustomerID
	}
	values = append(values, customer, r.Country, r.SourceSheet)

	var extras any
	if len(r.Extras) > 0 {
		extras = r.Extras
	}
	values = append(values, extras, r.TotalAmount, r.IsReturn)

	var yearMonth any
	if r.YearMonth != "" {
		yearMonth = r.YearMonth
	}
	return append(values, yearMonth)
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
