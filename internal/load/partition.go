package load

import "github.com/wonny/sales-etl/internal/contracts"

// CleanedSubset returns the records that belong in the cleaned partition,
// preserving input order
func CleanedSubset(records []contracts.SalesRecord) []contracts.SalesRecord {
	out := make([]contracts.SalesRecord, 0, len(records))
	for i := range records {
		if records[i].IsCleaned() {
			out = append(out, records[i])
		}
	}
	return out
}
