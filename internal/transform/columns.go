package transform

import (
	"fmt"
	"strings"

	"github.com/wonny/sales-etl/internal/contracts"
)

// synonyms maps a normalized source header to its canonical column.
// Keys are produced by normalizeHeader, so "Customer ID", "customer_id"
// and "CUSTOMERID" all hit the same entry.
var synonyms = map[string]string{
	"invoice":     contracts.ColInvoice,
	"invoiceno":   contracts.ColInvoice,
	"stockcode":   contracts.ColStockCode,
	"description": contracts.ColDescription,
	"quantity":    contracts.ColQuantity,
	"invoicedate": contracts.ColInvoiceDate,
	"price":       contracts.ColUnitPrice,
	"unitprice":   contracts.ColUnitPrice,
	"customerid":  contracts.ColCustomerID,
	"country":     contracts.ColCountry,
	"sourcesheet": contracts.ColSourceSheet,
}

// columnMap is the result of matching a header row against the synonym table
type columnMap struct {
	// canonical name → source column indexes, in header order
	fields map[string][]int
	// pass-through columns keyed by their original header
	extras     []string
	extraIndex map[string][]int
}

// normalizeHeader lowercases and drops separators
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch r {
		case ' ', '_', '-', '.', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mapColumns resolves every header either to a canonical field or to a
// pass-through column. Several headers may resolve to the same field when
// sheets with different spellings were combined.
func mapColumns(headers []string) *columnMap {
	m := &columnMap{
		fields:     make(map[string][]int),
		extraIndex: make(map[string][]int),
	}

	for idx, header := range headers {
		if canonical, ok := synonyms[normalizeHeader(header)]; ok {
			m.fields[canonical] = append(m.fields[canonical], idx)
			continue
		}

		name := strings.TrimSpace(header)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", idx)
		}
		if _, seen := m.extraIndex[name]; !seen {
			m.extras = append(m.extras, name)
		}
		m.extraIndex[name] = append(m.extraIndex[name], idx)
	}

	return m
}

// missing lists required canonical columns that no header resolved to
func (m *columnMap) missing() []string {
	var out []string
	for _, col := range contracts.RequiredColumns {
		if _, ok := m.fields[col]; !ok {
			out = append(out, col)
		}
	}
	return out
}

// has reports whether any header resolved to the canonical column
func (m *columnMap) has(canonical string) bool {
	_, ok := m.fields[canonical]
	return ok
}

// mapped returns the canonical columns present, in schema order
func (m *columnMap) mapped() []string {
	order := append(append([]string{}, contracts.RequiredColumns...), contracts.ColCustomerID, contracts.ColSourceSheet)
	var out []string
	for _, col := range order {
		if m.has(col) {
			out = append(out, col)
		}
	}
	return out
}

// firstNonEmpty returns the first non-blank cell among the given columns
func firstNonEmpty(table *contracts.RawTable, row int, cols []int) string {
	for _, c := range cols {
		if v := table.Cell(row, c); strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
