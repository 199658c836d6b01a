package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/edupulse/healthwatch/pkg/engine"
	"github.com/edupulse/healthwatch/pkg/model"
	"github.com/edupulse/healthwatch/pkg/storage"
)

// Server exposes the alert engine to the admin console: open alert listing,
// generation trigger, status updates and the generation audit log.
type Server struct {
	store     storage.AlertStore
	generator *engine.Generator
	lifecycle *engine.Lifecycle
	mux       *http.ServeMux
	logger    *slog.Logger
}

// New creates the admin API server.
func New(store storage.AlertStore, gen *engine.Generator, lc *engine.Lifecycle, logger *slog.Logger) *Server {
	s := &Server{
		store:     store,
		generator: gen,
		lifecycle: lc,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("POST /api/v1/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/v1/alerts/{id}/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/v1/generations", s.handleGenerations)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	alerts, err := s.store.ReadOpen(ctx, limit)
	if err != nil {
		s.logger.Error("read open alerts", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

type generateRequest struct {
	Accounts []model.AccountSummary `json:"accounts"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// An empty body means "use the configured snapshot source".
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var res engine.Result
	if len(req.Accounts) > 0 {
		res = s.generator.GenerateAccounts(r.Context(), req.Accounts)
	} else {
		res = s.generator.Generate(r.Context())
	}

	status := http.StatusOK
	if res.Err != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

type statusRequest struct {
	Status model.Status `json:"status"`
	Notes  string       `json:"notes,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	alert, err := s.lifecycle.Transition(ctx, r.PathValue("id"), req.Status, req.Notes)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "alert not found", http.StatusNotFound)
		return
	case errors.Is(err, engine.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		s.logger.Error("update alert status", "alert_id", r.PathValue("id"), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	batches, err := s.store.ReadBatches(ctx, 50)
	if err != nil {
		s.logger.Error("read generation log", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if batches == nil {
		batches = []model.GenerationBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
