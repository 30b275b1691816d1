package api

import (
	"context"
	"net/http"

	"github.com/okian/squadmetrics/internal/domain/types"
)

// ImpactDependencies defines the interface for team-wide reads.
type ImpactDependencies interface {
	ImpactShares(ctx context.Context) ([]types.Share, error)
	Records(ctx context.Context) ([]types.Record, error)
}

// ImpactHandler serves the impact distribution and the normalized sheet.
type ImpactHandler struct {
	deps ImpactDependencies
}

// NewImpactHandler creates a new impact handler.
func NewImpactHandler(deps ImpactDependencies) *ImpactHandler {
	return &ImpactHandler{deps: deps}
}

// HandleGetImpact handles GET /impact requests.
func (h *ImpactHandler) HandleGetImpact(w http.ResponseWriter, r *http.Request) {
	shares, err := h.deps.ImpactShares(r.Context())
	if err != nil {
		writeServiceError(w, "api.get_impact", err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// HandleGetRecords handles GET /records requests.
func (h *ImpactHandler) HandleGetRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.deps.Records(r.Context())
	if err != nil {
		writeServiceError(w, "api.get_records", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
