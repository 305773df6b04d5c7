// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vitislabs/decant/internal/domain/model"
)

// WinesDependencies defines the interface for catalog writes.
type WinesDependencies interface {
	AddWine(ctx context.Context, w model.Wine) (model.Wine, error)
}

// WinesHandler handles catalog wine requests.
type WinesHandler struct {
	deps WinesDependencies
}

// NewWinesHandler creates a new wines handler.
func NewWinesHandler(deps WinesDependencies) *WinesHandler {
	return &WinesHandler{deps: deps}
}

// wineRequest mirrors the OpenAPI schema for POST /wines.
type wineRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Producer string  `json:"producer"`
	Vintage  *int    `json:"vintage,omitempty"`
	Variety  *string `json:"variety,omitempty"`
	Region   *string `json:"region,omitempty"`
	LabelURL *string `json:"label_image_url,omitempty"`
	Category *string `json:"category,omitempty"`
}

// HandlePostWine handles POST /wines requests. An omitted id is assigned by
// the service; posting an existing id updates the catalog entry.
func (h *WinesHandler) HandlePostWine(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_wine"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req wineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	wine, err := h.deps.AddWine(r.Context(), model.Wine{
		ID:       req.ID,
		Name:     req.Name,
		Producer: req.Producer,
		Vintage:  req.Vintage,
		Variety:  req.Variety,
		Region:   req.Region,
		LabelURL: req.LabelURL,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, wine)
}
