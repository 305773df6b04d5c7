// Package rating implements the Elo-style update applied after a duel.
//
// The update is a pure function: callers read the two current scores,
// compute the new pair, and persist the results themselves.
package rating

import "math"

// Elo constants. The K-factor is fixed; a single duel can move a score by at
// most KFactor points.
const (
	// KFactor is the step size applied to every update.
	KFactor = 32.0

	// DefaultScore is the score assumed for a wine with no rating record.
	DefaultScore = 1500.0

	// spreadDivisor controls the logistic curve width: a wine rated 400
	// points above its opponent is expected to win ten times as often.
	spreadDivisor = 400.0
)

// ExpectedScore returns the probability, in [0, 1], that a wine with score a
// beats a wine with score b.
func ExpectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/spreadDivisor))
}

// Update computes the post-duel scores for the winner and loser.
//
// Scores are unbounded: repeated play can drive a score arbitrarily low or
// high, and no clamping or decay is applied. The winner's score never
// decreases and the loser's never increases.
func Update(winnerScore, loserScore float64) (newWinner, newLoser float64) {
	expectedWinner := ExpectedScore(winnerScore, loserScore)
	expectedLoser := 1.0 - expectedWinner

	newWinner = winnerScore + KFactor*(1.0-expectedWinner)
	newLoser = loserScore + KFactor*(0.0-expectedLoser)
	return newWinner, newLoser
}
