package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/pkg/logger"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 500
)

// QualityReader reads the monitor log
type QualityReader interface {
	Latest(ctx context.Context) (*contracts.QualityCheckResult, error)
	History(ctx context.Context, limit int) ([]contracts.QualityCheckResult, error)
}

// QualityChecker runs the quality gate on demand
type QualityChecker interface {
	Check(ctx context.Context) (*contracts.CheckOutcome, error)
}

// QualityHandler handles quality gate endpoints
// ⭐ SSOT: 품질 API 핸들러는 이 구조체에서만
type QualityHandler struct {
	reader  QualityReader
	checker QualityChecker
	logger  *logger.Logger
}

// NewQualityHandler creates a new quality handler
func NewQualityHandler(reader QualityReader, checker QualityChecker, log *logger.Logger) *QualityHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &QualityHandler{reader: reader, checker: checker, logger: log}
}

// GetLatest returns the most recent monitor log row
// GET /api/quality/latest
func (h *QualityHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	result, err := h.reader.Latest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest quality result")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve quality result")
		return
	}
	if result == nil {
		respondError(w, http.StatusNotFound, "No quality check has been recorded yet")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetHistory returns recent monitor log rows, newest first
// GET /api/quality/history?limit=30
func (h *QualityHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	results, err := h.reader.History(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get quality history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve quality history")
		return
	}
	if results == nil {
		results = []contracts.QualityCheckResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}

// RunCheck evaluates today's cleaned partition now
// POST /api/quality/check
func (h *QualityHandler) RunCheck(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.checker.Check(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Quality check failed")
		respondError(w, http.StatusInternalServerError, "Quality check failed")
		return
	}

	respondJSON(w, http.StatusOK, outcome)
}
