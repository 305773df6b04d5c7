// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/vitislabs/decant/internal/app"
	"github.com/vitislabs/decant/internal/domain/model"
)

// DuelDependencies defines the interface for duel flow dependencies.
type DuelDependencies interface {
	NextPair(ctx context.Context, userID string) (model.Pair, error)
	SubmitComparison(ctx context.Context, c model.Comparison) (bool, error)
}

// DuelHandler handles the duel prompt and submission endpoints.
type DuelHandler struct {
	deps DuelDependencies
}

// NewDuelHandler creates a new duel handler.
func NewDuelHandler(deps DuelDependencies) *DuelHandler {
	return &DuelHandler{deps: deps}
}

// HandleNextPair handles GET /duel/next?user_id= requests.
// A pool with fewer than two wines is a normal outcome, not an error.
func (h *DuelHandler) HandleNextPair(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_next_pair"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	pair, err := h.deps.NextPair(r.Context(), userID)
	if errors.Is(err, service.ErrInsufficientCandidates) {
		writeJSON(w, http.StatusOK, pairResponse{Status: "insufficient"})
		return
	}
	if err != nil {
		// Same failure class as a submit that did not commit; the client may
		// retry the fetch.
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, pairResponse{Status: "presented", Pair: &pair})
}

// HandleSubmit handles POST /duel requests.
func (h *DuelHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_duel"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req duelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	duplicate, err := h.deps.SubmitComparison(r.Context(), model.Comparison{
		ID:       req.ComparisonID,
		UserID:   req.UserID,
		WineAID:  req.WineAID,
		WineBID:  req.WineBID,
		WinnerID: req.WinnerID,
	})
	switch {
	case errors.Is(err, service.ErrInvalidWinner), errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		// The submission did not commit; the client may retry with the same
		// comparison_id.
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case duplicate:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
