package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/sales-etl/internal/api/handlers"
	"github.com/wonny/sales-etl/pkg/logger"
)

// Routes bundles the handlers the router mounts
type Routes struct {
	Health   http.HandlerFunc
	Quality  *handlers.QualityHandler
	Pipeline *handlers.PipelineHandler
	Stream   http.Handler

	// Scheduler is optional
	Scheduler *handlers.SchedulerHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(routes Routes, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", routes.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/quality/latest", routes.Quality.GetLatest).Methods("GET")
	api.HandleFunc("/quality/history", routes.Quality.GetHistory).Methods("GET")
	api.HandleFunc("/quality/check", routes.Quality.RunCheck).Methods("POST")

	api.HandleFunc("/pipeline/run", routes.Pipeline.Run).Methods("POST")
	api.HandleFunc("/pipeline/status", routes.Pipeline.GetStatus).Methods("GET")

	if routes.Scheduler != nil {
		api.HandleFunc("/scheduler/jobs", routes.Scheduler.GetJobs).Methods("GET")
		api.HandleFunc("/scheduler/jobs/{name}/history", routes.Scheduler.GetHistory).Methods("GET")
		api.HandleFunc("/scheduler/jobs/{name}/run", routes.Scheduler.RunJob).Methods("POST")
	}

	// the websocket route is not wrapped in the logging middleware's
	// response writer, which does not implement http.Hijacker
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Handle("/quality", routes.Stream).Methods("GET")

	api.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"Internal server error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
