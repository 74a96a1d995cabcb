// Package chi exposes the copilot over HTTP.
package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clinicopilot/internal/logger"
	copilotuc "github.com/kailas-cloud/clinicopilot/internal/usecase/copilot"
	healthuc "github.com/kailas-cloud/clinicopilot/internal/usecase/health"
)

// Error codes returned to clients.
const (
	codeBadRequest    = "bad_request"
	codeInternalError = "internal_error"
)

// Server handles the copilot HTTP API. Handlers log through the
// request-scoped logger placed in context by the wide-event middleware.
type Server struct {
	copilot *copilotuc.Service
	health  *healthuc.Service
}

// NewServer creates an HTTP API server.
func NewServer(copilot *copilotuc.Service, health *healthuc.Service) *Server {
	return &Server{copilot: copilot, health: health}
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/api/ask", s.Ask)
	r.Get("/api/suggestions", s.Suggestions)
	r.Get("/api/stats", s.Stats)
	r.Get("/api/history", s.History)
	r.Delete("/api/history", s.ClearHistory)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Ask handles POST /api/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.copilot.Process(r.Context(), req.Question, req.UserID)
	if err != nil {
		logger.FromContext(r.Context()).Error("process question", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, askResponseFromDomain(resp))
}

// Suggestions handles GET /api/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, scope := s.copilot.Suggestions()
	writeJSON(w, http.StatusOK, suggestionsResponse{
		Suggestions: suggestions,
		Scope:       scope,
	})
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statsFromDomain(s.copilot.Stats(r.Context())))
}

// History handles GET /api/history. The optional user_id query parameter
// narrows the log to one caller.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	entries := s.copilot.History(r.URL.Query().Get("user_id"))
	writeJSON(w, http.StatusOK, historyFromDomain(entries))
}

// ClearHistory handles DELETE /api/history.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	s.copilot.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Interaction history cleared"})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthFromReport(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
