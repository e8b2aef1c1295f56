package quality

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/wonny/sales-etl/internal/contracts"
)

// MonitorTable is the append-only log of quality results
const MonitorTable = "dq_monitor_log"

const cleanedTable = "sales_cleaned"

// Store is what the evaluator reads from and writes to
type Store interface {
	CleanedExists(ctx context.Context) (bool, error)
	DailyAggregate(ctx context.Context, day time.Time) (*contracts.DailyAggregate, error)
	EnsureMonitorLog(ctx context.Context) error
	AppendResult(ctx context.Context, result *contracts.QualityCheckResult) error
}

// DB is the subset of *pgxpool.Pool the repository needs
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository handles quality data persistence
// ⭐ SSOT: dq_monitor_log 저장/조회는 여기서만
type Repository struct {
	db      DB
	cleaned string
	monitor string
}

// NewRepository creates a repository over the given schema
func NewRepository(db DB, schema string) *Repository {
	return &Repository{
		db:      db,
		cleaned: pgx.Identifier{schema, cleanedTable}.Sanitize(),
		monitor: pgx.Identifier{schema, MonitorTable}.Sanitize(),
	}
}

// CleanedExists reports whether the cleaned partition has been created
func (r *Repository) CleanedExists(ctx context.Context) (bool, error) {
	return r.exists(ctx, r.cleaned)
}

func (r *Repository) exists(ctx context.Context, qualified string) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", qualified).Scan(&ok); err != nil {
		return false, &contracts.PersistenceError{Op: "lookup " + qualified, Err: err}
	}
	return ok, nil
}

// DailyAggregate sums the cleaned partition for one calendar day
func (r *Repository) DailyAggregate(ctx context.Context, day time.Time) (*contracts.DailyAggregate, error) {
	query := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(total_amount), 0)::numeric::text,
			COUNT(*),
			COUNT(*) FILTER (WHERE customer_id IS NULL OR customer_id = '')
		FROM %s
		WHERE invoice_date::date = $1::date
	`, r.cleaned)

	var total string
	agg := &contracts.DailyAggregate{Date: day}
	err := r.db.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&total, &agg.RowCount, &agg.MissingCount)
	if err != nil {
		return nil, &contracts.PersistenceError{Op: "aggregate daily revenue", Err: err}
	}

	agg.DailyTotal, err = decimal.NewFromString(total)
	if err != nil {
		return nil, &contracts.PersistenceError{Op: "parse daily total", Err: err}
	}

	return agg, nil
}

// EnsureMonitorLog creates the monitor log if it does not exist yet
func (r *Repository) EnsureMonitorLog(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			check_ts                TIMESTAMP DEFAULT NOW(),
			check_date              DATE,
			daily_total             NUMERIC,
			missing_customer_ratio  NUMERIC,
			status                  TEXT,
			alert_message           TEXT
		)
	`, r.monitor)

	if _, err := r.db.Exec(ctx, query); err != nil {
		return &contracts.PersistenceError{Op: "create " + MonitorTable, Err: err}
	}
	return nil
}

// AppendResult inserts one monitor log row and fills in its check_ts
func (r *Repository) AppendResult(ctx context.Context, result *contracts.QualityCheckResult) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (check_date, daily_total, missing_customer_ratio, status, alert_message)
		VALUES ($1::date, $2::text::numeric, $3, $4, $5)
		RETURNING check_ts
	`, r.monitor)

	err := r.db.QueryRow(ctx, query,
		result.CheckDate.Format("2006-01-02"),
		result.DailyTotal.String(),
		result.MissingCustomerRatio,
		string(result.Status),
		result.AlertMessage,
	).Scan(&result.CheckedAt)
	if err != nil {
		return &contracts.PersistenceError{Op: "insert " + MonitorTable, Err: err}
	}
	return nil
}

// Latest returns the most recent monitor log row, or nil when there is none
func (r *Repository) Latest(ctx context.Context) (*contracts.QualityCheckResult, error) {
	results, err := r.History(ctx, 1)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

// History returns up to limit monitor log rows, newest first
func (r *Repository) History(ctx context.Context, limit int) ([]contracts.QualityCheckResult, error) {
	ok, err := r.exists(ctx, r.monitor)
	if err != nil || !ok {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT check_ts, check_date, COALESCE(daily_total, 0)::text,
		       COALESCE(missing_customer_ratio, 0)::float8, status, COALESCE(alert_message, '')
		FROM %s
		ORDER BY check_ts DESC
		LIMIT $1
	`, r.monitor)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, &contracts.PersistenceError{Op: "query " + MonitorTable, Err: err}
	}
	defer rows.Close()

	var results []contracts.QualityCheckResult
	for rows.Next() {
		var (
			res    contracts.QualityCheckResult
			total  string
			status string
		)
		if err := rows.Scan(&res.CheckedAt, &res.CheckDate, &total, &res.MissingCustomerRatio, &status, &res.AlertMessage); err != nil {
			return nil, &contracts.PersistenceError{Op: "scan " + MonitorTable, Err: err}
		}
		if res.DailyTotal, err = decimal.NewFromString(total); err != nil {
			return nil, &contracts.PersistenceError{Op: "parse daily total", Err: err}
		}
		res.Status = contracts.QualityStatus(status)
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, &contracts.PersistenceError{Op: "iterate " + MonitorTable, Err: err}
	}

	return results, nil
}
