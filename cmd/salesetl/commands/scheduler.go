package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sales-etl/internal/scheduler"
	"github.com/wonny/sales-etl/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작 (Ctrl+C 로 종료)
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)
  status  - 작업 스케줄 조회

Example:
  go run ./cmd/salesetl scheduler start
  go run ./cmd/salesetl scheduler run sales_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- sales_pipeline: SCHEDULE_PIPELINE (기본 매일 02:00)
- quality_check:  SCHEDULE_QUALITY 가 설정된 경우에만

REDIS_ENABLED=true 이면 여러 인스턴스 중 하나만 파이프라인을 실행합니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 스케줄 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, release, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer release()

	sched.Start()

	out := cmd.OutOrStdout()
	printSuccess(out, "Scheduler started")
	printJobs(out, sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, release, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer release()

	printJobs(cmd.OutOrStdout(), sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, release, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer release()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running job: %s\n", jobName)

	ctx, cancel := a.timeoutContext()
	defer cancel()

	result, err := sched.RunNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job %s: %w", jobName, err)
	}

	printSuccess(out, fmt.Sprintf("Job %s completed in %s (%d attempt(s))",
		jobName, result.Duration.Round(time.Millisecond), result.Attempts))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	sched, release, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer release()

	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		stat := stats[jobName]
		fmt.Fprintf(out, "📊 %s\n", jobName)
		fmt.Fprintf(out, "   Schedule: %s\n", stat.Schedule)
		fmt.Fprintf(out, "   Total Runs: %d\n", stat.TotalRuns)
		if stat.TotalRuns > 0 {
			fmt.Fprintf(out, "   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		}
		if stat.LastRun != nil {
			fmt.Fprintf(out, "   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastError != "" {
			fmt.Fprintf(out, "   Last Error: %s\n", stat.LastError)
		}
		fmt.Fprintln(out)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	latest, err := a.repo.Latest(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		fmt.Fprintf(out, "Last quality check: %s at %s\n", latest.Status, latest.CheckedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printJobs(out io.Writer, sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	fmt.Fprintln(out, "Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %-16s %s\n", jobName, stats[jobName].Schedule)
	}
}

// initScheduler registers the pipeline job, plus the standalone quality job
// when SCHEDULE_QUALITY is set. The returned func releases the Redis client.
func initScheduler(a *app) (*scheduler.Scheduler, func(), error) {
	locker, release, err := a.locker()
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log).WithRetry(a.cfg.Schedule.MaxRetries, a.cfg.Schedule.RetryDelay)

	pipelineJob := jobs.NewPipelineJob(a.runner, a.cfg.Schedule.Pipeline, a.log).
		WithLock(locker, a.cfg.Redis.LockTTL)
	if err := sched.AddJob(pipelineJob); err != nil {
		release()
		return nil, nil, fmt.Errorf("add job %s: %w", pipelineJob.Name(), err)
	}

	if a.cfg.Schedule.Quality != "" {
		qualityJob := jobs.NewQualityJob(a.runner, a.cfg.Schedule.Quality, a.log)
		if err := sched.AddJob(qualityJob); err != nil {
			release()
			return nil, nil, fmt.Errorf("add job %s: %w", qualityJob.Name(), err)
		}
	}

	return sched, release, nil
}
