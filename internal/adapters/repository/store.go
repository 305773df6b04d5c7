// Package repository defines the persistence contracts for the duel service
// and provides the Postgres and in-memory implementations.
package repository

import (
	"context"

	"github.com/vitislabs/decant/internal/domain/model"
)

// Store provides read/write access to the ranking state and the append-only
// duel logs. All implementations must keep UpsertRating idempotent: writing
// the same (user, wine, score, position) twice leaves the stored state
// unchanged from a single write.
type Store interface {
	// NextPair returns the next duel prompt for a user. ok is false when
	// fewer than two eligible candidates exist; that outcome is not an error.
	NextPair(ctx context.Context, userID string) (pair model.Pair, ok bool, err error)

	// CountCandidates returns the size of the user's duel candidate pool.
	CountCandidates(ctx context.Context, userID string) (int, error)

	// Rating returns the current elo score for a (user, wine) pair.
	// Absence is not an error: ok is false and the caller assumes the default.
	Rating(ctx context.Context, userID, wineID string) (score float64, ok bool, err error)

	// UpsertRating creates or overwrites the rating record for a pair.
	UpsertRating(ctx context.Context, r model.Rating) error

	// ListRatings returns every rating record for a user, in no particular order.
	ListRatings(ctx context.Context, userID string) ([]model.Rating, error)

	// UpdatePositions bulk-writes recomputed positions for a user. Only the
	// Position and UpdatedAt fields of each record are written; write order
	// within the batch carries no meaning.
	UpdatePositions(ctx context.Context, userID string, updates []model.Rating) error

	// ListRankings returns the user's ranked wines ordered by position.
	ListRankings(ctx context.Context, userID string) ([]model.RankedWine, error)

	// AppendComparison appends an immutable duel outcome. No update or delete
	// path exists.
	AppendComparison(ctx context.Context, c model.Comparison) error

	// AppendActivity appends a social feed entry.
	AppendActivity(ctx context.Context, a model.Activity) error

	// ListActivity returns a user's most recent feed entries, newest first.
	ListActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error)

	// UpsertWine creates or refreshes a catalog wine.
	UpsertWine(ctx context.Context, w model.Wine) error

	// AddCellarItem links a wine into a user's cellar, growing the candidate
	// pool when the status is "had".
	AddCellarItem(ctx context.Context, item model.CellarItem) error
}
