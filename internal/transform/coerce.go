package transform

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order before falling back to Excel serial numbers
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// maxExcelSerial is 9999-12-31, the last date Excel can represent
const maxExcelSerial = 2958465

// thousandsGrouped matches numbers whose commas separate groups of three digits
var thousandsGrouped = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// parseNumber coerces a cell to a number; anything unparsable is null.
// Commas are accepted only as thousands separators ("1,234.5"), so a
// decimal comma such as "6,95" is null rather than 695.
func parseNumber(cell string) *float64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if strings.Contains(s, ",") {
		if !thousandsGrouped.MatchString(s) {
			return nil
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseDate coerces a cell to a timestamp; anything unparsable is null.
// Raw workbook cells carry dates as serial day numbers (1900 date system).
func parseDate(cell string) *time.Time {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 || serial > maxExcelSerial {
		return nil
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil
	}
	t = t.Round(time.Second)
	return &t
}

// parseCustomerID keeps identifiers as text. Numeric IDs that a spreadsheet
// stored as floats ("13085.0") are rendered without the fraction.
func parseCustomerID(cell string) *string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if whole, frac, ok := strings.Cut(s, "."); ok && strings.Trim(frac, "0") == "" && isDigits(whole) {
		s = whole
	}
	return &s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
