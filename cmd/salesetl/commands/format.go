package commands

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/internal/load"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	singleLine = "───────────────────────────────────────────────────────────"
	doubleLine = "═══════════════════════════════════════════════════════════"
)

func printHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

func printSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

func printWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

func printInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// printTable prints rows under a header, padding every column to its widest cell
func printTable(w io.Writer, columns []string, rows [][]string) {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(values []string) {
		for i, val := range values {
			if i == len(values)-1 {
				fmt.Fprint(w, val)
				continue
			}
			fmt.Fprintf(w, "%-*s  ", widths[i], val)
		}
		fmt.Fprintln(w)
	}

	printRow(columns)
	total := 0
	for _, width := range widths {
		total += width + 2
	}
	fmt.Fprintln(w, strings.Repeat("─", total-2))
	for _, row := range rows {
		printRow(row)
	}
}

// printReport prints a finished pipeline run
func printReport(w io.Writer, report *contracts.RunReport) {
	printHeader(w, "Pipeline Run "+report.RunID)
	fmt.Fprintf(w, "  Raw rows     : %d\n", report.RawRows)
	if report.Load != nil {
		fmt.Fprintf(w, "  Staging rows : %d (%s.%s)\n", report.Load.StagingRows, report.Load.Schema, load.StagingTable)
		fmt.Fprintf(w, "  Cleaned rows : %d (%s.%s)\n", report.Load.CleanedRows, report.Load.Schema, load.CleanedTable)
	}
	for _, timing := range report.Timings {
		fmt.Fprintf(w, "  %-12s : %s\n", timing.Stage, timing.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w, singleLine)
	if report.Quality != nil {
		printOutcome(w, report.Quality)
	}
}

// printOutcome prints a quality gate outcome
func printOutcome(w io.Writer, outcome *contracts.CheckOutcome) {
	if outcome.IsSkipped() {
		printInfo(w, "Quality check skipped: "+outcome.Reason)
		return
	}

	res := outcome.Result
	fmt.Fprintf(w, "  Check date   : %s\n", res.CheckDate.Format("2006-01-02"))
	fmt.Fprintf(w, "  Daily total  : %s\n", res.DailyTotal.StringFixed(2))
	fmt.Fprintf(w, "  Missing cust : %.2f%%\n", res.MissingCustomerRatio*100)
	if res.Passed() {
		printSuccess(w, "Quality PASS")
		return
	}
	printWarning(w, "Quality FAIL")
	fmt.Fprintf(w, "  %s\n", res.AlertMessage)
}

// maskPassword hides the password in a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
