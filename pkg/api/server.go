package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/events"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/log"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/metrics"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/prefs"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/types"
)

// EngineStatus is the slice of the execution engine the control surface
// reports on
type EngineStatus interface {
	ActiveRemediationCount() int
	QueueDepth() int
}

// Server is the HTTP control surface: operator status, kill switch,
// autonomy level, recent actions, health and metrics.
type Server struct {
	router *chi.Mux
	server *http.Server

	prefs     *prefs.Prefs
	store     storage.Store
	engine    EngineStatus
	broker    *events.Broker
	startedAt time.Time
	logger    zerolog.Logger
}

// NewServer creates the control surface server
func NewServer(p *prefs.Prefs, store storage.Store, engine EngineStatus, broker *events.Broker) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		prefs:     p,
		store:     store,
		engine:    engine,
		broker:    broker,
		startedAt: time.Now(),
		logger:    log.WithComponent("api"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", metrics.HealthHandler().ServeHTTP)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Put("/killswitch", s.handleSetKillSwitch)
		r.Put("/autonomy-level", s.handleSetAutonomyLevel)
		r.Get("/actions", s.handleListActions)
	})
}

// Start listens on addr until Stop is called
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("control surface listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error().Err(err).Msg("control surface shutdown failed")
	}
}

// ServeHTTP allows the server to be used as a plain http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StatusResponse is the body of GET /v1/status
type StatusResponse struct {
	Running            bool   `json:"running"`
	KillSwitchActive   bool   `json:"killSwitchActive"`
	AutonomyLevel      int    `json:"autonomyLevel"`
	AutonomyLevelName  string `json:"autonomyLevelName"`
	ActiveRemediations int    `json:"activeRemediations"`
	QueueDepth         int    `json:"queueDepth"`
	UptimeSeconds      int64  `json:"uptimeSeconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	killSwitch, err := s.prefs.KillSwitchActive()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read kill switch")
	}
	level, err := s.prefs.AutonomyLevel()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read autonomy level")
	}

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:            true,
		KillSwitchActive:   killSwitch,
		AutonomyLevel:      int(level),
		AutonomyLevelName:  level.String(),
		ActiveRemediations: s.engine.ActiveRemediationCount(),
		QueueDepth:         s.engine.QueueDepth(),
		UptimeSeconds:      int64(time.Since(s.startedAt).Seconds()),
	})
}

// KillSwitchRequest is the body of PUT /v1/killswitch
type KillSwitchRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleSetKillSwitch(w http.ResponseWriter, r *http.Request) {
	var req KillSwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.prefs.SetKillSwitch(req.Active); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to persist kill switch: %v", err))
		return
	}

	s.logger.Warn().Bool("active", req.Active).Msg("kill switch changed by operator")
	s.broker.Publish(&events.Event{
		Type:     events.EventKillSwitchChanged,
		Message:  fmt.Sprintf("kill switch set to %v", req.Active),
		Metadata: map[string]string{"active": strconv.FormatBool(req.Active)},
	})

	s.writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// AutonomyRequest is the body of PUT /v1/autonomy-level
type AutonomyRequest struct {
	Level int `json:"level"`
}

func (s *Server) handleSetAutonomyLevel(w http.ResponseWriter, r *http.Request) {
	var req AutonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	level := types.AutonomyLevel(req.Level)
	if !level.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("autonomy level must be 0-4, got %d", req.Level))
		return
	}

	if err := s.prefs.SetAutonomyLevel(level); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to persist autonomy level: %v", err))
		return
	}

	s.logger.Info().Str("level", level.String()).Msg("autonomy level changed by operator")
	s.broker.Publish(&events.Event{
		Type:     events.EventAutonomyChanged,
		Message:  fmt.Sprintf("autonomy level set to %s", level),
		Metadata: map[string]string{"level": strconv.Itoa(req.Level)},
	})

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"level": req.Level,
		"name":  level.String(),
	})
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := s.store.ListRecentAudit(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read audit log: %v", err))
		return
	}
	if records == nil {
		records = []*types.AuditRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
