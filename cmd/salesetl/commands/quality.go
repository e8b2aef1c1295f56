package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/sales-etl/internal/contracts"
)

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "품질 검증 관리",
	Long: `적재된 sales_cleaned 에 대해 당일 품질 검증을 실행하거나 이력을 조회합니다.

Subcommands:
  check    - 재적재 없이 품질 검증 1회 실행
  history  - dq_monitor_log 최근 기록 조회`,
}

var qualityCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "품질 검증 1회 실행",
	RunE:  runQualityCheck,
}

var qualityHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "품질 검증 이력 조회",
	RunE:  runQualityHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(qualityCmd)
	qualityCmd.AddCommand(qualityCheckCmd)
	qualityCmd.AddCommand(qualityHistoryCmd)

	qualityHistoryCmd.Flags().IntVar(&historyLimit, "limit", 10, "조회할 기록 수")
}

func runQualityCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.timeoutContext()
	defer cancel()

	outcome, err := a.runner.Check(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "Quality Check")
	printOutcome(out, outcome)
	return nil
}

func runQualityHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.timeoutContext()
	defer cancel()

	results, err := a.repo.History(ctx, historyLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printHeader(out, "Quality History")
	if len(results) == 0 {
		printInfo(out, "No quality checks recorded yet")
		return nil
	}
	printTable(out, []string{"checked_at", "date", "daily_total", "missing", "status", "alert"}, historyRows(results))
	return nil
}

func historyRows(results []contracts.QualityCheckResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.CheckedAt.Format("2006-01-02 15:04:05"),
			r.CheckDate.Format("2006-01-02"),
			r.DailyTotal.StringFixed(2),
			strconv.FormatFloat(r.MissingCustomerRatio*100, 'f', 2, 64) + "%",
			string(r.Status),
			r.AlertMessage,
		})
	}
	return rows
}
