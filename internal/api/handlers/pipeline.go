package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/logger"
)

// PipelineRunner runs the full ETL once
type PipelineRunner interface {
	Run(ctx context.Context) (*contracts.RunReport, error)
}

// PipelineHandler triggers pipeline runs in the background
// ⭐ SSOT: 파이프라인 API 핸들러는 여기서만
type PipelineHandler struct {
	runner  PipelineRunner
	timeout time.Duration
	logger  *logger.Logger

	mu      sync.Mutex
	running bool
	last    *pipelineStatus
	done    chan struct{} // closed when the current run finishes
}

type pipelineStatus struct {
	Report *contracts.RunReport `json:"report,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// NewPipelineHandler creates a new pipeline handler. timeout bounds one
// background run; zero means unbounded.
func NewPipelineHandler(runner PipelineRunner, timeout time.Duration, log *logger.Logger) *PipelineHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PipelineHandler{runner: runner, timeout: timeout, logger: log}
}

// Run starts a pipeline run unless one is already in flight
// POST /api/pipeline/run
func (h *PipelineHandler) Run(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		respondError(w, http.StatusConflict, "A pipeline run is already in progress")
		return
	}
	h.running = true
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	go h.run(done)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
	})
}

// run outlives the request, so it uses its own context
func (h *PipelineHandler) run(done chan struct{}) {
	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	report, err := h.runner.Run(ctx)
	status := &pipelineStatus{Report: report}
	if err != nil {
		h.logger.WithError(err).Error("Pipeline run triggered via API failed")
		status.Error = err.Error()
	}

	h.mu.Lock()
	h.running = false
	h.last = status
	h.mu.Unlock()
	close(done)
}

// GetStatus reports whether a run is in flight and how the last one ended
// GET /api/pipeline/status
func (h *PipelineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running": h.running,
		"last":    h.last,
	})
}

// Wait blocks until the in-flight run, if any, has finished
func (h *PipelineHandler) Wait(ctx context.Context) error {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
