// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/vitislabs/decant/internal/domain/model"
)

// RankingsDependencies defines the interface for ranking reads.
type RankingsDependencies interface {
	Rankings(ctx context.Context, userID string) ([]model.RankedWine, error)
}

// RankingsHandler handles ranking list requests.
type RankingsHandler struct {
	deps RankingsDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleGetRankings handles GET /rankings?user_id= requests. The list is
// ordered by position; an empty cellar yields an empty list, not an error.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rankings, err := h.deps.Rankings(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if rankings == nil {
		rankings = []model.RankedWine{}
	}
	writeJSON(w, http.StatusOK, rankings)
}
