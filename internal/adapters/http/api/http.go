// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vitislabs/decant/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Duel flow.
	NextPair(ctx context.Context, userID string) (model.Pair, error)
	SubmitComparison(ctx context.Context, c model.Comparison) (duplicate bool, err error)

	// Read operations.
	Rankings(ctx context.Context, userID string) ([]model.RankedWine, error)
	Activity(ctx context.Context, userID string, limit int) ([]model.Activity, error)

	// Catalog and cellar management.
	AddWine(ctx context.Context, w model.Wine) (model.Wine, error)
	AddCellarItem(ctx context.Context, userID, wineID, status string) (model.CellarItem, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	duelHandler     *DuelHandler
	rankingsHandler *RankingsHandler
	winesHandler    *WinesHandler
	cellarHandler   *CellarHandler
	activityHandler *ActivityHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxActivityLimit int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		duelHandler:     NewDuelHandler(deps),
		rankingsHandler: NewRankingsHandler(deps),
		winesHandler:    NewWinesHandler(deps),
		cellarHandler:   NewCellarHandler(deps),
		activityHandler: NewActivityHandler(deps, maxActivityLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/duel/next", MetricsMiddleware(s.duelHandler.HandleNextPair, "duel_next"))
	mux.HandleFunc("/duel", MetricsMiddleware(s.duelHandler.HandleSubmit, "duel"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/wines", MetricsMiddleware(s.winesHandler.HandlePostWine, "wines"))
	mux.HandleFunc("/cellar", MetricsMiddleware(s.cellarHandler.HandlePostItem, "cellar"))
	mux.HandleFunc("/activity", MetricsMiddleware(s.activityHandler.HandleGetActivity, "activity"))
}

// duelRequest mirrors the OpenAPI schema for POST /duel.
type duelRequest struct {
	ComparisonID string `json:"comparison_id"`
	UserID       string `json:"user_id"`
	WineAID      string `json:"wine_a_id"`
	WineBID      string `json:"wine_b_id"`
	WinnerID     string `json:"winner_id"`
}

func (d duelRequest) validate() error {
	switch {
	case strings.TrimSpace(d.UserID) == "":
		return NewKind("api.post_duel", ErrBadRequest)
	case strings.TrimSpace(d.WineAID) == "":
		return NewKind("api.post_duel", ErrBadRequest)
	case strings.TrimSpace(d.WineBID) == "":
		return NewKind("api.post_duel", ErrBadRequest)
	case strings.TrimSpace(d.WinnerID) == "":
		return NewKind("api.post_duel", ErrBadRequest)
	}
	return nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// pairResponse is the GET /duel/next shape. Status is "presented" when a pair
// is attached and "insufficient" when the pool holds fewer than two wines.
type pairResponse struct {
	Status string      `json:"status"`
	Pair   *model.Pair `json:"pair,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
