package repository

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vitislabs/decant/internal/domain/model"
	"github.com/vitislabs/decant/pkg/metrics"
)

// MemStore implements Store with in-process maps. It backs unit tests and the
// "memory" storage mode; the Postgres store is the production implementation.
type MemStore struct {
	mu sync.RWMutex

	wines   map[string]model.Wine                  // wineID -> wine
	ratings map[string]map[string]model.Rating     // userID -> wineID -> rating
	cellar  map[string]map[string]model.CellarItem // userID -> wineID -> item

	comparisons []model.Comparison
	activity    []model.Activity

	rng *rand.Rand
}

// NewMemStore creates an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		wines:   make(map[string]model.Wine),
		ratings: make(map[string]map[string]model.Rating),
		cellar:  make(map[string]map[string]model.CellarItem),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // selection randomness, not crypto
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NextPair picks the next duel prompt. An unrated candidate, when one exists,
// is always injected into slot A so it collects its first rating; slot B
// prefers an already-rated opponent.
func (s *MemStore) NextPair(ctx context.Context, userID string) (model.Pair, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	unrated, rated := s.partitionCandidates(userID)
	if len(unrated)+len(rated) < 2 {
		return model.Pair{}, false, nil
	}

	var aID, bID string
	var aIsNew bool
	switch {
	case len(unrated) > 0 && len(rated) > 0:
		aID = unrated[s.rng.Intn(len(unrated))]
		bID = rated[s.rng.Intn(len(rated))]
		aIsNew = true
	case len(unrated) > 0:
		// Nothing rated yet: two unrated candidates duel each other.
		i := s.rng.Intn(len(unrated))
		j := s.rng.Intn(len(unrated) - 1)
		if j >= i {
			j++
		}
		aID, bID = unrated[i], unrated[j]
		aIsNew = true
	default:
		i := s.rng.Intn(len(rated))
		j := s.rng.Intn(len(rated) - 1)
		if j >= i {
			j++
		}
		aID, bID = rated[i], rated[j]
	}

	wineA, okA := s.wines[aID]
	wineB, okB := s.wines[bID]
	if !okA || !okB {
		return model.Pair{}, false, ErrUnknownWine
	}

	return model.Pair{WineA: wineA, WineB: wineB, WineAIsNew: aIsNew}, true, nil
}

// partitionCandidates splits the user's "had" cellar wines into unrated and
// rated id slices, sorted for deterministic selection under a seeded rng.
// Callers must hold at least the read lock.
func (s *MemStore) partitionCandidates(userID string) (unrated, rated []string) {
	userRatings := s.ratings[userID]
	for wineID, item := range s.cellar[userID] {
		if item.Status != model.CellarStatusHad {
			continue
		}
		if _, has := userRatings[wineID]; has {
			rated = append(rated, wineID)
		} else {
			unrated = append(unrated, wineID)
		}
	}
	sort.Strings(unrated)
	sort.Strings(rated)
	return unrated, rated
}

func (s *MemStore) CountCandidates(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, item := range s.cellar[userID] {
		if item.Status == model.CellarStatusHad {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Rating(ctx context.Context, userID, wineID string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.ratings[userID][wineID]
	if !ok {
		return 0, false, nil
	}
	return r.EloScore, true, nil
}

func (s *MemStore) UpsertRating(ctx context.Context, r model.Rating) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ratings[r.UserID] == nil {
		s.ratings[r.UserID] = make(map[string]model.Rating)
	}
	s.ratings[r.UserID][r.WineID] = r
	return nil
}

func (s *MemStore) ListRatings(ctx context.Context, userID string) ([]model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Rating, 0, len(s.ratings[userID]))
	for _, r := range s.ratings[userID] {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemStore) UpdatePositions(ctx context.Context, userID string, updates []model.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userRatings := s.ratings[userID]
	for _, u := range updates {
		r, ok := userRatings[u.WineID]
		if !ok {
			continue
		}
		r.Position = u.Position
		r.UpdatedAt = u.UpdatedAt
		userRatings[u.WineID] = r
	}
	return nil
}

func (s *MemStore) ListRankings(ctx context.Context, userID string) ([]model.RankedWine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RankedWine, 0, len(s.ratings[userID]))
	for wineID, r := range s.ratings[userID] {
		wine, ok := s.wines[wineID]
		if !ok {
			continue
		}
		out = append(out, model.RankedWine{Position: r.Position, EloScore: r.EloScore, Wine: wine})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *MemStore) AppendComparison(ctx context.Context, c model.Comparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comparisons = append(s.comparisons, c)
	return nil
}

func (s *MemStore) AppendActivity(ctx context.Context, a model.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activity = append(s.activity, a)
	return nil
}

func (s *MemStore) ListActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Activity, 0, limit)
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		if s.activity[i].UserID == userID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}

func (s *MemStore) UpsertWine(ctx context.Context, w model.Wine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wines[w.ID] = w
	return nil
}

func (s *MemStore) AddCellarItem(ctx context.Context, item model.CellarItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wines[item.WineID]; !ok {
		return ErrUnknownWine
	}
	if s.cellar[item.UserID] == nil {
		s.cellar[item.UserID] = make(map[string]model.CellarItem)
	}
	s.cellar[item.UserID][item.WineID] = item
	return nil
}

// ComparisonCount reports the size of the comparison log. Test helper.
func (s *MemStore) ComparisonCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comparisons)
}
