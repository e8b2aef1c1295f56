package transform

import (
	"strings"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/logger"
)

// Normalizer maps a raw table onto the canonical sales schema
// ⭐ SSOT: 컬럼 매핑과 타입 변환은 여기서만
type Normalizer struct {
	logger *logger.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{logger: log}
}

// Normalize renames columns, coerces types and derives total_amount,
// is_return and year_month. Unparsable values become null; no row is dropped.
func (n *Normalizer) Normalize(table *contracts.RawTable) ([]contracts.SalesRecord, *contracts.TransformSummary, error) {
	if table == nil {
		table = &contracts.RawTable{}
	}

	cols := mapColumns(table.Columns)
	if missing := cols.missing(); len(missing) > 0 {
		return nil, nil, &contracts.SchemaError{Missing: missing, Found: table.Columns}
	}

	summary := &contracts.TransformSummary{
		Rows:         table.Len(),
		PassThrough:  cols.extras,
		MappedFields: cols.mapped(),
	}

	records := make([]contracts.SalesRecord, table.Len())
	for i := range table.Rows {
		rec := &records[i]
		n.fill(rec, table, i, cols)
		rec.Derive()

		if rec.InvoiceDate == nil {
			summary.NullDates++
		}
		if rec.IsReturn {
			summary.Returns++
		}
	}

	n.logger.WithFields(map[string]interface{}{
		"rows":       summary.Rows,
		"null_dates": summary.NullDates,
		"returns":    summary.Returns,
		"extras":     len(summary.PassThrough),
	}).Info("Transform complete")

	return records, summary, nil
}

func (n *Normalizer) fill(rec *contracts.SalesRecord, table *contracts.RawTable, row int, cols *columnMap) {
	get := func(canonical string) string {
		return firstNonEmpty(table, row, cols.fields[canonical])
	}

	rec.Invoice = strings.TrimSpace(get(contracts.ColInvoice))
	rec.StockCode = strings.TrimSpace(get(contracts.ColStockCode))
	rec.Description = strings.TrimSpace(get(contracts.ColDescription))
	rec.Quantity = parseNumber(get(contracts.ColQuantity))
	rec.InvoiceDate = parseDate(get(contracts.ColInvoiceDate))
	rec.UnitPrice = parseNumber(get(contracts.ColUnitPrice))
	rec.Country = get(contracts.ColCountry)
	rec.SourceSheet = get(contracts.ColSourceSheet)

	if cols.has(contracts.ColCustomerID) {
		rec.CustomerID = parseCustomerID(get(contracts.ColCustomerID))
	}

	if len(cols.extras) == 0 {
		return
	}
	rec.Extras = make(map[string]string, len(cols.extras))
	for _, name := range cols.extras {
		rec.Extras[name] = firstNonEmpty(table, row, cols.extraIndex[name])
	}
}
