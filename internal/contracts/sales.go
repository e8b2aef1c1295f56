package contracts

import (
	"math"
	"strings"
	"time"
)

// Canonical column names of the sales schema
const (
	ColInvoice     = "invoice"
	ColStockCode   = "stock_code"
	ColDescription = "description"
	ColQuantity    = "quantity"
	ColInvoiceDate = "invoice_date"
	ColUnitPrice   = "unit_price"
	ColCustomerID  = "customer_id"
	ColCountry     = "country"
	ColSourceSheet = "source_sheet"
)

// RequiredColumns must all be present after column mapping
var RequiredColumns = []string{
	ColInvoice,
	ColStockCode,
	ColDescription,
	ColQuantity,
	ColInvoiceDate,
	ColUnitPrice,
	ColCountry,
}

// RawTable is a tabular dataset as read from the source, cells kept as text
// ⭐ SSOT: Extract → Transform 전달 형식
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the value at (row, col), or "" when the row is short
func (t *RawTable) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// SalesRecord is one canonical sales line.
// Nullable source fields stay nil; only the derived values treat them as 0.
type SalesRecord struct {
	Invoice     string            `json:"invoice"`
	StockCode   string            `json:"stock_code"`
	Description string            `json:"description"`
	Quantity    *float64          `json:"quantity"`
	InvoiceDate *time.Time        `json:"invoice_date"`
	UnitPrice   *float64          `json:"unit_price"`
	CustomerID  *string           `json:"customer_id"`
	Country     string            `json:"country"`
	SourceSheet string            `json:"source_sheet"`
	Extras      map[string]string `json:"extras,omitempty"`

	TotalAmount float64 `json:"total_amount"`
	IsReturn    bool    `json:"is_return"`
	YearMonth   string  `json:"year_month"`
}

// QuantityOrZero returns the quantity with null read as 0
func (r *SalesRecord) QuantityOrZero() float64 {
	if r.Quantity == nil {
		return 0
	}
	return *r.Quantity
}

// UnitPriceOrZero returns the unit price with null read as 0
func (r *SalesRecord) UnitPriceOrZero() float64 {
	if r.UnitPrice == nil {
		return 0
	}
	return *r.UnitPrice
}

// Derive fills TotalAmount, IsReturn and YearMonth from the source fields
func (r *SalesRecord) Derive() {
	r.TotalAmount = r.QuantityOrZero() * r.UnitPriceOrZero()
	r.IsReturn = strings.HasPrefix(r.Invoice, "C") || (r.Quantity != nil && *r.Quantity < 0)
	r.YearMonth = ""
	if r.InvoiceDate != nil {
		r.YearMonth = r.InvoiceDate.Format("2006-01")
	}
}

// IsCleaned reports whether the record belongs in the cleaned partition:
// not a return, non-negative quantity and a strictly positive price.
// A total that overflowed to infinity is never clean.
func (r *SalesRecord) IsCleaned() bool {
	if math.IsInf(r.TotalAmount, 0) || math.IsNaN(r.TotalAmount) {
		return false
	}
	return !r.IsReturn && r.QuantityOrZero() >= 0 && r.UnitPriceOrZero() > 0
}

// MissingCustomer reports whether the customer identifier is null or empty
func (r *SalesRecord) MissingCustomer() bool {
	return r.CustomerID == nil || *r.CustomerID == ""
}

// TransformSummary describes a Normalize call for logging
type TransformSummary struct {
	Rows         int      `json:"rows"`
	NullDates    int      `json:"null_dates"`
	Returns      int      `json:"returns"`
	PassThrough  []string `json:"pass_through_columns,omitempty"`
	MappedFields []string `json:"mapped_fields"`
}

// LoadSummary describes a Load call
type LoadSummary struct {
	Schema      string `json:"schema"`
	StagingRows int64  `json:"staging_rows"`
	CleanedRows int64  `json:"cleaned_rows"`
}
