// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vitislabs/decant/internal/adapters/repository"
	"github.com/vitislabs/decant/internal/domain/model"
)

// CellarDependencies defines the interface for cellar writes.
type CellarDependencies interface {
	AddCellarItem(ctx context.Context, userID, wineID, status string) (model.CellarItem, error)
}

// CellarHandler handles cellar item requests.
type CellarHandler struct {
	deps CellarDependencies
}

// NewCellarHandler creates a new cellar handler.
func NewCellarHandler(deps CellarDependencies) *CellarHandler {
	return &CellarHandler{deps: deps}
}

// cellarRequest mirrors the OpenAPI schema for POST /cellar.
type cellarRequest struct {
	UserID string `json:"user_id"`
	WineID string `json:"wine_id"`
	Status string `json:"status"`
}

func (c cellarRequest) validate() error {
	const op = "api.post_cellar"
	switch {
	case strings.TrimSpace(c.UserID) == "":
		return NewKind(op, ErrBadRequest)
	case strings.TrimSpace(c.WineID) == "":
		return NewKind(op, ErrBadRequest)
	}
	switch c.Status {
	case model.CellarStatusHad, model.CellarStatusWishlist:
		return nil
	default:
		return NewKind(op, ErrBadRequest)
	}
}

// HandlePostItem handles POST /cellar requests. Wines marked "had" join the
// duel candidate pool.
func (h *CellarHandler) HandlePostItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_cellar"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req cellarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	item, err := h.deps.AddCellarItem(r.Context(), req.UserID, req.WineID, req.Status)
	if errors.Is(err, repository.ErrUnknownWine) {
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
