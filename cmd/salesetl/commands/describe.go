package commands

import (
	"errors"
	"fmt"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/internal/extract"
	"github.com/wonny/sales-etl/pkg/config"
)

// Describe renders a fatal error with a hint at what to fix
func Describe(err error) string {
	var (
		schemaErr  *contracts.SchemaError
		persistErr *contracts.PersistenceError
		hint       string
	)

	switch {
	case errors.As(err, &schemaErr):
		hint = "the workbook headers do not map to the sales schema; check the source file and SHEETS"
	case errors.Is(err, extract.ErrSourceNotFound):
		hint = "set EXCEL_PATH to an existing .xlsx file"
	case errors.Is(err, extract.ErrSheetNotFound):
		hint = "SHEETS names a sheet the workbook does not contain; leave it empty to read every sheet"
	case errors.Is(err, config.ErrMissingConfig), errors.Is(err, config.ErrInvalidConfig):
		hint = "check your .env or environment variables"
	case errors.As(err, &persistErr):
		hint = "check DATABASE_URL and that PostgreSQL is reachable"
	}

	if hint == "" {
		return fmt.Sprintf("❌ %v", err)
	}
	return fmt.Sprintf("❌ %v\n   hint: %s", err, hint)
}
