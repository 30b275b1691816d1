package api

import (
	"context"
	"net/http"
)

// RefreshDependencies defines the interface for forced refreshes.
type RefreshDependencies interface {
	Refresh(ctx context.Context) error
}

// RefreshHandler handles refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /refresh requests.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Refresh(r.Context()); err != nil {
		writeServiceError(w, "api.refresh", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refreshed"})
}
