// Package api provides the HTTP server for traction.
// It exposes the task-board operations (status, ordering, timers), the
// journal read surface and the scheduler controls as a small JSON API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/traction-app/traction/internal/app/journal"
	"github.com/traction-app/traction/internal/app/tasks"
	"github.com/traction-app/traction/internal/domain"
	"github.com/traction-app/traction/internal/health"
	"github.com/traction-app/traction/internal/infra/scheduler"
)

// Server is the traction HTTP API server.
type Server struct {
	tasks          *tasks.Service
	journal        *journal.Generator
	runner         *scheduler.Runner
	checker        *health.Checker
	defaultOwner   string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(taskSvc *tasks.Service, gen *journal.Generator, runner *scheduler.Runner, defaultOwner string) *Server {
	return &Server{tasks: taskSvc, journal: gen, runner: runner, defaultOwner: defaultOwner}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealthChecker attaches the periodic self-check results to /health.
func (s *Server) SetHealthChecker(c *health.Checker) { s.checker = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.handleCreateTask)
			r.Get("/", s.handleListTasks)
			r.Post("/reorder", s.handleReorder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Post("/status", s.handleUpdateStatus)
				r.Post("/position", s.handleMoveToPosition)
				r.Get("/history", s.handleTaskHistory)
				r.Get("/time-entries", s.handleTimeEntries)
				r.Post("/timer/start", s.handleStartTimer)
				r.Post("/timer/pause", s.handlePauseTimer)
				r.Post("/timer/stop", s.handleStopTimer)
			})
		})

		r.Get("/journal/{date}", s.handleGetJournal)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", s.handleSchedulerStatus)
			r.Post("/jobs/{id}/run", s.handleSchedulerRunNow)
		})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status, code := "ok", http.StatusOK
	if !s.checker.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.checker.Statuses(),
	})
}

// owner resolves the acting owner for a request. Authentication is out of
// scope; a single-user daemon falls back to the configured default owner.
func (s *Server) owner(r *http.Request) string {
	if o := r.Header.Get("X-Owner"); o != "" {
		return o
	}
	return s.defaultOwner
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a domain error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrJournalNotFound),
		errors.Is(err, domain.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTimerNotRunning),
		errors.Is(err, domain.ErrTaskNotStartable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Owner")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
