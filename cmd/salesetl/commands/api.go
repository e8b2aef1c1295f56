package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sales-etl/internal/api"
	"github.com/wonny/sales-etl/internal/api/handlers"
	"github.com/wonny/sales-etl/internal/api/stream"
	"github.com/wonny/sales-etl/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /api/quality/latest      - 최근 품질 검증 결과
  GET  /api/quality/history     - 품질 검증 이력 (?limit=30)
  POST /api/quality/check       - 품질 검증 즉시 실행
  POST /api/pipeline/run        - 파이프라인 실행 (백그라운드)
  GET  /api/pipeline/status     - 파이프라인 실행 상태
  GET  /ws/quality              - 품질 결과 스트림 (WebSocket)

With --with-scheduler:
  GET  /api/scheduler/jobs                - 작업 통계
  GET  /api/scheduler/jobs/{name}/history - 작업 실행 이력
  POST /api/scheduler/jobs/{name}/run     - 작업 즉시 실행

Example:
  go run ./cmd/salesetl api
  go run ./cmd/salesetl api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값 PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "같은 프로세스에서 스케줄러도 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	hub := stream.NewHub(a.log)
	defer hub.Close()
	a.runner.WithPublisher(hub)

	pipelineHandler := handlers.NewPipelineHandler(a.runner, a.timeout(), a.log)
	routes := api.Routes{
		Health:   api.HealthHandler(a.db),
		Quality:  handlers.NewQualityHandler(a.repo, a.runner, a.log),
		Pipeline: pipelineHandler,
		Stream:   hub,
	}

	var sched *scheduler.Scheduler
	if withScheduler {
		s, release, err := initScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		defer release()
		sched = s
		routes.Scheduler = handlers.NewSchedulerHandler(sched, a.log)
		sched.Start()
	}

	router := api.NewRouter(routes, a.log)

	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	printSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	if sched != nil {
		printJobs(out, sched)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	a.log.WithField("stream_clients", hub.Clients()).Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := pipelineHandler.Wait(ctx); err != nil {
		a.log.WithError(err).Warn("Pipeline run still in flight at shutdown")
	}

	a.log.Info("Server stopped")
	return nil
}
