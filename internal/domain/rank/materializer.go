// Package rank recomputes dense, 1-based positions over a user's rating
// records after any score change.
package rank

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vitislabs/decant/internal/domain/model"
	"github.com/vitislabs/decant/pkg/logger"
	"github.com/vitislabs/decant/pkg/metrics"
)

// Store is the persistence surface the materializer needs.
type Store interface {
	ListRatings(ctx context.Context, userID string) ([]model.Rating, error)
	UpdatePositions(ctx context.Context, userID string, updates []model.Rating) error
}

// Option applies a configuration option to the Materializer.
type Option func(*Materializer)

// WithLogger sets a custom logger for the materializer.
func WithLogger(l logger.Logger) Option {
	return func(m *Materializer) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(m *Materializer) {
		if now != nil {
			m.now = now
		}
	}
}

// Materializer rewrites every position for a user from the current scores.
// The recompute is always full, never incremental, so positions can never
// drift from the score order.
type Materializer struct {
	store  Store
	logger logger.Logger
	now    func() time.Time
}

// New creates a Materializer over the given store.
func New(store Store, opts ...Option) *Materializer {
	m := &Materializer{
		store: store,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logger.Get().Named("rank")
	}

	return m
}

// Materialize fetches all rating records for the user, sorts them by score
// descending with ties broken by wine id ascending, and persists position =
// index + 1 for every record. N is expected to stay small (tens to low
// hundreds of wines per user), so O(N) writes per duel are acceptable.
func (m *Materializer) Materialize(ctx context.Context, userID string) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositionLatency(float64(time.Since(start).Milliseconds()))
	}()

	records, err := m.store.ListRatings(ctx, userID)
	if err != nil {
		return fmt.Errorf("materializing ranks for user %s: %w", userID, err)
	}
	if len(records) == 0 {
		return nil
	}

	Order(records)

	now := m.now()
	for i := range records {
		records[i].Position = i + 1
		records[i].UpdatedAt = now
	}

	if err := m.store.UpdatePositions(ctx, userID, records); err != nil {
		// Positions degrade in freshness but scores are already durable;
		// the next duel recomputes everything from scratch.
		m.logger.Warn(ctx, "position write incomplete",
			logger.String("userID", userID),
			logger.Int("records", len(records)),
			logger.Error(err),
		)
		return fmt.Errorf("writing positions for user %s: %w", userID, err)
	}

	return nil
}

// Order sorts rating records into ranking order: elo score descending,
// ties broken deterministically by wine id ascending.
func Order(records []model.Rating) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].EloScore != records[j].EloScore {
			return records[i].EloScore > records[j].EloScore
		}
		return records[i].WineID < records[j].WineID
	})
}
