package commands

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "파이프라인 1회 실행 (Extract → Transform → Load → Quality)",
	Long: `워크북을 읽어 sales_staging / sales_cleaned 를 교체하고 당일 품질 검증을 수행합니다.

품질 FAIL 은 오류가 아닙니다. 알림을 보내고 dq_monitor_log 에 기록한 뒤 0 으로 종료합니다.
단계 실패(파일 없음, 스키마 불일치, DB 오류)만 1 로 종료합니다.

Example:
  go run ./cmd/salesetl run`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := a.timeoutContext()
	defer cancel()

	report, err := a.runner.Run(ctx)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}
