package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/config"
	"github.com/wonny/sales-etl/pkg/logger"
)

var (
	// ErrSourceNotFound is returned when the workbook does not exist
	ErrSourceNotFound = errors.New("source workbook not found")

	// ErrSheetNotFound is returned when a configured sheet is not in the workbook
	ErrSheetNotFound = errors.New("sheet not found")
)

// ctxCheckEvery is how many rows are read between context checks
const ctxCheckEvery = 5000

// ExcelSource reads sales sheets from an .xlsx workbook
// ⭐ SSOT: 원천 데이터 추출은 여기서만
type ExcelSource struct {
	path   string
	sheets []string
	logger *logger.Logger
}

// NewExcelSource creates a source over cfg.ExcelPath. An empty sheet list
// reads every sheet in the workbook.
func NewExcelSource(cfg config.SourceConfig, log *logger.Logger) *ExcelSource {
	if log == nil {
		log = logger.Nop()
	}
	return &ExcelSource{path: cfg.ExcelPath, sheets: cfg.Sheets, logger: log}
}

// Extract reads the configured sheets into one table. Headers are unioned
// across sheets in order of first appearance and every row is tagged with
// the sheet it came from. Cells are read raw, so dates arrive as serials.
func (s *ExcelSource) Extract(ctx context.Context) (*contracts.RawTable, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (check EXCEL_PATH)", ErrSourceNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	sheets, err := s.resolveSheets(f)
	if err != nil {
		return nil, err
	}

	u := newUnion()
	for _, sheet := range sheets {
		n, err := s.readSheet(ctx, f, sheet, u)
		if err != nil {
			return nil, err
		}
		s.logger.WithFields(map[string]interface{}{
			"sheet": sheet,
			"rows":  n,
		}).Info("Sheet extracted")
	}

	table := u.table()
	s.logger.WithFields(map[string]interface{}{
		"path":    s.path,
		"sheets":  len(sheets),
		"rows":    table.Len(),
		"columns": len(table.Columns),
	}).Info("Extract complete")

	return table, nil
}

func (s *ExcelSource) resolveSheets(f *excelize.File) ([]string, error) {
	available := f.GetSheetList()
	if len(s.sheets) == 0 {
		return available, nil
	}

	known := make(map[string]bool, len(available))
	for _, name := range available {
		known[name] = true
	}
	for _, name := range s.sheets {
		if !known[name] {
			return nil, fmt.Errorf("%w: %q (workbook has: %s; check SHEETS)",
				ErrSheetNotFound, name, strings.Join(available, ", "))
		}
	}
	return s.sheets, nil
}

// readSheet streams one sheet into the union and returns its data row count
func (s *ExcelSource) readSheet(ctx context.Context, f *excelize.File, sheet string, u *union) (int, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	var (
		index []int // sheet column → union column
		count int
		seen  int
	)

	for rows.Next() {
		seen++
		if seen%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}

		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return count, fmt.Errorf("failed to read row %d of %s: %w", seen, sheet, err)
		}

		if index == nil {
			index = u.addHeader(cells)
			continue
		}
		if blank(cells) {
			continue
		}

		u.addRow(index, cells, sheet)
		count++
	}

	if err := rows.Error(); err != nil {
		return count, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	return count, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
