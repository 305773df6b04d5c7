package service

import "errors"

// Sentinel kinds for duel service errors. These allow errors.Is from callers.
var (
	// ErrInsufficientCandidates signals fewer than two eligible wines in the
	// user's pool. A user-visible outcome, not a system failure: the fix is
	// adding more wines, not retrying.
	ErrInsufficientCandidates = errors.New("not enough wines to duel")

	// ErrInvalidWinner signals a winner id matching neither wine of the pair.
	// Rejected before any I/O occurs.
	ErrInvalidWinner = errors.New("winner is not part of the pair")

	// ErrInvalidSubmission signals a structurally broken submission
	// (missing ids, wine dueling itself).
	ErrInvalidSubmission = errors.New("invalid duel submission")

	// ErrNotStarted signals use of the service before Start.
	ErrNotStarted = errors.New("service not started")
)
