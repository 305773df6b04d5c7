package service

import (
	"context"
	"errors"
	"sync"

	"github.com/vitislabs/decant/internal/domain/model"
)

// SessionState is the client-observed state of a duel session.
type SessionState string

// Session states. There is no server-side session record; the state machine
// is a view over stateless request/response calls.
const (
	StateIdle         SessionState = "idle"
	StateLoading      SessionState = "loading"
	StatePresented    SessionState = "presented"
	StateInsufficient SessionState = "insufficient"
	StateFailed       SessionState = "failed"
	StateSubmitting   SessionState = "submitting"
)

// DuelAPI is the service surface a session drives.
type DuelAPI interface {
	NextPair(ctx context.Context, userID string) (model.Pair, error)
	SubmitComparison(ctx context.Context, c model.Comparison) (bool, error)
}

// Session tracks one user's duel flow. Pair fetches are guarded by a
// monotonically increasing sequence number: a response is applied only if it
// belongs to the latest issued request, so a superseded fetch can never
// overwrite a newer pair (last request wins).
type Session struct {
	mu sync.Mutex

	api    DuelAPI
	userID string

	state SessionState
	pair  model.Pair
	err   error

	seq uint64 // latest issued fetch sequence
}

// NewSession creates an idle session for a user.
func NewSession(api DuelAPI, userID string) *Session {
	return &Session{
		api:    api,
		userID: userID,
		state:  StateIdle,
	}
}

// LoadNextPair fetches the next duel prompt. Safe to call while a previous
// fetch is still in flight: the stale response is discarded when it lands.
func (s *Session) LoadNextPair(ctx context.Context) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	pair, err := s.api.NextPair(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		// A newer fetch was issued while this one was in flight.
		return
	}

	switch {
	case errors.Is(err, ErrInsufficientCandidates):
		s.state = StateInsufficient
		s.pair = model.Pair{}
	case err != nil:
		s.state = StateFailed
		s.err = err
	default:
		s.state = StatePresented
		s.pair = pair
	}
}

// SubmitWinner submits the presented pair with the chosen winner and, on
// success, loads the next pair. On failure the pair is retained so the user
// can retry without losing their choice.
func (s *Session) SubmitWinner(ctx context.Context, comparisonID, winnerID string) error {
	s.mu.Lock()
	// A failed submission retains its pair, so retrying from the failed
	// state is allowed.
	if s.state != StatePresented && !(s.state == StateFailed && s.pair.WineA.ID != "") {
		s.mu.Unlock()
		return ErrInvalidSubmission
	}
	pair := s.pair
	if winnerID != pair.WineA.ID && winnerID != pair.WineB.ID {
		s.mu.Unlock()
		return ErrInvalidWinner
	}
	s.state = StateSubmitting
	s.err = nil
	s.mu.Unlock()

	_, err := s.api.SubmitComparison(ctx, model.Comparison{
		ID:       comparisonID,
		UserID:   s.userID,
		WineAID:  pair.WineA.ID,
		WineBID:  pair.WineB.ID,
		WinnerID: winnerID,
	})

	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.pair = pair // retained for retry
		s.err = err
		s.mu.Unlock()
		return err
	}

	s.LoadNextPair(ctx)
	return nil
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pair returns the currently presented pair.
func (s *Session) Pair() model.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

// Err returns the failure captured in the failed state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
