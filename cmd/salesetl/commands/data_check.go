package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/sales-etl/internal/load"
	"github.com/wonny/sales-etl/internal/quality"
)

var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "적재 현황 점검",
	Long: `스키마의 파티션 행 수와 최근 품질 검증 결과를 출력합니다.

Example:
  go run ./cmd/salesetl data-check`,
	RunE: runDataCheck,
}

func init() {
	rootCmd.AddCommand(dataCheckCmd)
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.timeoutContext()
	defer cancel()

	counts, err := a.loader.Counts(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "Data Check: schema "+a.db.Schema)
	printCounts(out, counts, load.StagingTable, load.CleanedTable)
	fmt.Fprintln(out, singleLine)

	latest, err := a.repo.Latest(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		printInfo(out, "No rows in "+quality.MonitorTable+" yet")
		return nil
	}

	fmt.Fprintf(out, "  Last check   : %s\n", latest.CheckedAt.Format("2006-01-02 15:04:05"))
	if latest.Passed() {
		printSuccess(out, "Latest quality status PASS")
	} else {
		printWarning(out, "Latest quality status FAIL")
		fmt.Fprintf(out, "  %s\n", latest.AlertMessage)
	}
	return nil
}

// printCounts prints partition row counts, "-" for a partition not created yet
func printCounts(out io.Writer, counts map[string]int64, tables ...string) {
	for _, table := range tables {
		n, ok := counts[table]
		if !ok {
			fmt.Fprintf(out, "  %-14s : -\n", table)
			continue
		}
		fmt.Fprintf(out, "  %-14s : %d\n", table, n)
	}
}
