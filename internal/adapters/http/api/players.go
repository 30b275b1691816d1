package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/squadmetrics/internal/domain/types"
)

// PlayerDependencies defines the interface for per-player reads.
type PlayerDependencies interface {
	Players(ctx context.Context) ([]string, error)
	Player(ctx context.Context, id string) (types.Player, error)
	Trend(ctx context.Context, id string) (types.Trend, error)
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

// HandleListPlayers handles GET /players requests.
func (h *PlayerHandler) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.Players(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_players", err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleGetPlayer handles GET /players/{player} requests.
func (h *PlayerHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	p, err := h.deps.Player(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGetTrend handles GET /players/{player}/trend requests.
func (h *PlayerHandler) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_trend"
	id, ok := playerID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	tr, err := h.deps.Trend(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func playerID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["player"])
	return id, id != ""
}
