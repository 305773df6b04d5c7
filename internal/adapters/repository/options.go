package repository

import "math/rand"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithRand sets the random source used for pair selection. Tests pass a
// seeded source to make selection deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *MemStore) {
		if rng != nil {
			s.rng = rng
		}
	}
}
