// Package model contains domain models passed between layers.
package model

import "time"

// Wine is a catalog entry. Rating state lives in per-user Rating records,
// never on the wine itself.
type Wine struct {
	ID       string  `json:"id"` // uuid
	Name     string  `json:"name"`
	Producer string  `json:"producer"`
	Vintage  *int    `json:"vintage,omitempty"`
	Variety  *string `json:"variety,omitempty"`
	Region   *string `json:"region,omitempty"`
	LabelURL *string `json:"label_image_url,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Rating is the mutable per-user, per-wine ranking record. At most one
// record exists per (UserID, WineID) pair.
type Rating struct {
	UserID    string    `json:"user_id"`
	WineID    string    `json:"wine_id"`
	EloScore  float64   `json:"elo_score"`
	Position  int       `json:"position"` // dense 1-based rank, assigned only by the materializer
	UpdatedAt time.Time `json:"updated_at"`
}

// Comparison is an immutable duel outcome. WinnerID always equals either
// WineAID or WineBID.
type Comparison struct {
	ID        string    `json:"id"` // client-supplied uuid, used for idempotent retries
	UserID    string    `json:"user_id"`
	WineAID   string    `json:"wine_a_id"`
	WineBID   string    `json:"wine_b_id"`
	WinnerID  string    `json:"winner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Pair is the next duel prompt for a user. WineAIsNew marks slot A as a
// deliberately injected unrated wine collecting its first rating.
type Pair struct {
	WineA      Wine `json:"wine_a"`
	WineB      Wine `json:"wine_b"`
	WineAIsNew bool `json:"wine_a_is_new"`
}

// RankedWine joins a rating record with its wine for ranking list reads.
type RankedWine struct {
	Position int     `json:"position"`
	EloScore float64 `json:"elo_score"`
	Wine     Wine    `json:"wine"`
}

// Activity types written to the social feed.
const (
	ActivityDuelWin = "duel_win"
)

// Activity is a social feed entry appended after a duel completes.
type Activity struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	WineID       string    `json:"wine_id"`                  // the winning wine
	TargetWineID string    `json:"target_wine_id,omitempty"` // the losing wine
	CreatedAt    time.Time `json:"created_at"`
}

// Cellar item statuses. Only wines marked "had" are eligible duel candidates.
const (
	CellarStatusHad      = "had"
	CellarStatusWishlist = "wishlist"
)

// CellarItem links a user to a wine in their cellar. The set of "had" items
// forms the user's duel candidate pool.
type CellarItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	WineID    string    `json:"wine_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
