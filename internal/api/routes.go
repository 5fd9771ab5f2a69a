package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/link-control/blc/internal/auth"
)

// Server carries the API dependencies and builds the router.
type Server struct {
	httpServer *http.Server
	controller ControllerPort
	stream     TelemetryPort
	authmw     *auth.Middleware
	started    time.Time
}

// NewServer creates the API server surface. authmw may be nil to run
// the API open, for local development only.
func NewServer(controller ControllerPort, stream TelemetryPort, authmw *auth.Middleware) *Server {
	return &Server{
		controller: controller,
		stream:     stream,
		authmw:     authmw,
		started:    time.Now(),
	}
}

// Router builds the chi route tree. Health stays unauthenticated; the
// link and telemetry routes sit behind bearer auth and scope checks.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.authmw != nil {
				r.Use(s.authmw.RequireAuth)
			}

			r.With(s.requireScope(auth.ScopeRead)).Get("/link", s.handleLinkStatus)
			r.With(s.requireScope(auth.ScopeControl)).Post("/link/enable", s.handleEnable)
			r.With(s.requireScope(auth.ScopeControl)).Post("/link/disable", s.handleDisable)
			r.With(s.requireScope(auth.ScopeTelemetry)).Get("/telemetry", s.handleTelemetry)
		})
	})

	return r
}

func (s *Server) requireScope(scope string) func(http.Handler) http.Handler {
	if s.authmw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.authmw.RequireScope(scope)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleLinkStatus(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, s.controller.Status())
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Enable(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Failed to enable radio services", err.Error())
		return
	}
	WriteSuccess(w, s.controller.Status())
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Disable(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Failed to disable radio services", err.Error())
		return
	}
	WriteSuccess(w, s.controller.Status())
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if err := s.stream.Subscribe(r.Context(), w, r); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "Telemetry subscription failed", err.Error())
	}
}
