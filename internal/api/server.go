// Package api exposes the admin HTTP surface: health, error statistics,
// degradation control, session stats, and cache administration.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thesathwik/brainstorm-buddy/internal/degradation"
	"github.com/thesathwik/brainstorm-buddy/internal/intervention"
	"github.com/thesathwik/brainstorm-buddy/internal/llm"
	"github.com/thesathwik/brainstorm-buddy/internal/pipeline"
	"github.com/thesathwik/brainstorm-buddy/internal/resilience"
	"github.com/thesathwik/brainstorm-buddy/internal/store"
	"github.com/thesathwik/brainstorm-buddy/internal/transport"
)

type Server struct {
	pipe     *pipeline.Pipeline
	engine   *intervention.Engine
	coord    *resilience.Coordinator
	degrade  *degradation.Service
	client   *llm.ResilientClient
	store    store.DataStore
	listener transport.Listener
	router   chi.Router
	port     int
}

func NewServer(
	pipe *pipeline.Pipeline,
	engine *intervention.Engine,
	coord *resilience.Coordinator,
	degrade *degradation.Service,
	client *llm.ResilientClient,
	ds store.DataStore,
	listener transport.Listener,
	port int,
) *Server {
	srv := &Server{
		pipe:     pipe,
		engine:   engine,
		coord:    coord,
		degrade:  degrade,
		client:   client,
		store:    ds,
		listener: listener,
		port:     port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Get("/errors/stats", srv.handleErrorStats)
		r.Get("/system/health", srv.handleSystemHealth)
		r.Get("/degradation", srv.handleGetDegradation)
		r.Put("/degradation", srv.handleSetDegradation)
		r.Get("/sessions", srv.handleListSessions)
		r.Get("/sessions/{sessionID}/stats", srv.handleSessionStats)
		r.Get("/sessions/{sessionID}/drift", srv.handleSessionDrift)
		r.Get("/sessions/{sessionID}/interventions", srv.handleSessionInterventions)
		r.Get("/cache/stats", srv.handleCacheStats)
		r.Delete("/cache", srv.handleClearCache)
		r.Put("/offline", srv.handleSetOffline)
	})

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting admin API", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := s.listener != nil && s.listener.IsConnected()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"service":     "brainstorm-buddy",
		"connected":   connected,
		"online":      s.client.Online(),
		"offline":     s.client.OfflineMode(),
		"degradation": s.degrade.Level().String(),
		"sessions":    len(s.pipe.Sessions()),
	})
}

func (s *Server) handleErrorStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Statistics())
}

func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	health := s.coord.SystemHealth()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          health.Status,
		"issues":          health.Issues,
		"degradation":     s.degrade.Level().String(),
		"recommendations": s.degrade.AggregateRecommendations(),
	})
}

func (s *Server) handleGetDegradation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"level": s.degrade.Level().String()})
}

func (s *Server) handleSetDegradation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level  string `json:"level"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	level, ok := degradation.ParseLevel(req.Level)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown level " + req.Level})
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "set via admin API"
	}
	s.degrade.SetLevel(level, reason)
	writeJSON(w, http.StatusOK, map[string]string{"level": level.String()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipe.Sessions())
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tracker, ok := s.pipe.Tracker(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, tracker.Stats())
}

func (s *Server) handleSessionDrift(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, ok := s.pipe.Tracker(sessionID); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Drift(sessionID))
}

func (s *Server) handleSessionInterventions(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	// Prefer the durable audit trail; fall back to in-memory history.
	if s.store != nil {
		recs, err := s.store.QueryInterventions(r.Context(), sessionID, limit)
		if err == nil {
			writeJSON(w, http.StatusOK, recs)
			return
		}
		slog.Error("query interventions failed", "error", err)
	}

	tracker, ok := s.pipe.Tracker(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	history := tracker.Snapshot().InterventionHistory
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.client.CacheStats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.client.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSetOffline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Offline bool `json:"offline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	s.client.SetOfflineMode(req.Offline)
	writeJSON(w, http.StatusOK, map[string]bool{"offline": req.Offline})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
