package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/sales-etl/internal/scheduler"
	"github.com/wonny/sales-etl/pkg/logger"
)

// JobScheduler is the part of the scheduler the API exposes
type JobScheduler interface {
	GetJobStats() map[string]scheduler.JobStats
	GetJobHistory(jobName string) (*scheduler.JobHistory, error)
	RunJob(jobName string) error
}

// SchedulerHandler handles scheduler endpoints. Mounted only when the API
// process also runs the scheduler.
type SchedulerHandler struct {
	scheduler JobScheduler
	logger    *logger.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(s JobScheduler, log *logger.Logger) *SchedulerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SchedulerHandler{scheduler: s, logger: log}
}

// GetJobs returns statistics for every registered job
// GET /api/scheduler/jobs
func (h *SchedulerHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// GetHistory returns the retained results of one job, oldest first
// GET /api/scheduler/jobs/{name}/history
func (h *SchedulerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	history, err := h.scheduler.GetJobHistory(name)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "Unknown job: "+name)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("job", name).Error("Failed to get job history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve job history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":     name,
		"count":   len(history.Results),
		"results": history.Results,
	})
}

// RunJob starts a job outside its schedule
// POST /api/scheduler/jobs/{name}/run
func (h *SchedulerHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.scheduler.RunJob(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Unknown job: "+name)
			return
		}
		h.logger.WithError(err).WithField("job", name).Error("Failed to start job")
		respondError(w, http.StatusInternalServerError, "Failed to start job")
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    name,
	})
}
