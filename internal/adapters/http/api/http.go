// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"

	service "github.com/okian/squadmetrics/internal/app"
	"github.com/okian/squadmetrics/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	PlayerDependencies
	ImpactDependencies

	// Refresh drops the cached sheet and evaluates a fresh one.
	Refresh(ctx context.Context) error
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	playerHandler      *PlayerHandler
	impactHandler      *ImpactHandler
	refreshHandler     *RefreshHandler
	logger             logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		playerHandler:      NewPlayerHandler(deps),
		impactHandler:      NewImpactHandler(deps),
		refreshHandler:     NewRefreshHandler(deps),
		logger:             log,
	}
}

// Handler builds the router with every route attached.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r *mux.Router) {
	r.Use(RecoveryMiddleware(s.logger))

	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.Handle("/metrics", s.healthHandler.MetricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).Methods(http.MethodGet)
	r.HandleFunc("/players", MetricsMiddleware(s.playerHandler.HandleListPlayers, "players")).Methods(http.MethodGet)
	r.HandleFunc("/players/{player}", MetricsMiddleware(s.playerHandler.HandleGetPlayer, "player")).Methods(http.MethodGet)
	r.HandleFunc("/players/{player}/trend", MetricsMiddleware(s.playerHandler.HandleGetTrend, "trend")).Methods(http.MethodGet)
	r.HandleFunc("/impact", MetricsMiddleware(s.impactHandler.HandleGetImpact, "impact")).Methods(http.MethodGet)
	r.HandleFunc("/records", MetricsMiddleware(s.impactHandler.HandleGetRecords, "records")).Methods(http.MethodGet)
	r.HandleFunc("/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh")).Methods(http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a service failure onto a status and error code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, service.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrEmptySnapshot):
		writeError(w, http.StatusServiceUnavailable, "empty_snapshot", Wrap(op, err))
	case errors.Is(err, service.ErrFetch), errors.Is(err, service.ErrNoSource):
		writeError(w, http.StatusBadGateway, "source_unavailable", Wrap(op, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
