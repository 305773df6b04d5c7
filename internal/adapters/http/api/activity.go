// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/vitislabs/decant/internal/domain/model"
)

// defaultActivityLimit applies when GET /activity omits the limit parameter.
const defaultActivityLimit = 20

// ActivityDependencies defines the interface for feed reads.
type ActivityDependencies interface {
	Activity(ctx context.Context, userID string, limit int) ([]model.Activity, error)
}

// ActivityHandler handles activity feed requests.
type ActivityHandler struct {
	deps     ActivityDependencies
	maxLimit int
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(deps ActivityDependencies, maxLimit int) *ActivityHandler {
	return &ActivityHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetActivity handles GET /activity?user_id=&limit=N requests.
func (h *ActivityHandler) HandleGetActivity(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_activity"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	limit := defaultActivityLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	entries, err := h.deps.Activity(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, entries)
}
