package testduels

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/vitislabs/decant/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	qualityTierDivisor = 5
)

// Constants for quality tiers. A cellar is mostly everyday bottles with a
// thin top end, so the tiers are weighted rather than uniform.
const (
	caseEveryday = 0
	caseSolid    = 1
	caseFine     = 2
	caseGrand    = 3
	caseFlawed   = 4

	everydayMin   = 3.0
	everydayRange = 2.0
	solidMin      = 5.0
	solidRange    = 2.0
	fineMin       = 7.0
	fineRange     = 1.5
	grandMin      = 8.5
	grandRange    = 1.5
	flawedMin     = 0.5
	flawedRange   = 2.5
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateWines creates the cellar to duel over. Each wine carries a hidden
// quality in [0.5, 10] that later decides duel winners.
func generateWines(ctx context.Context, config *Config, stats *Stats) []Wine {
	logger.Get().Info(ctx, "generating wines", logger.Int("numWines", config.NumWines))

	wines := make([]Wine, config.NumWines)
	for i := range wines {
		wines[i] = Wine{
			ID:       uuid.New().String(),
			Name:     "Test Wine " + strconv.Itoa(i+1),
			Producer: "Producer " + strconv.Itoa(i%10+1),
			Quality:  generateQuality(),
		}
	}

	stats.WinesSeeded = len(wines)
	logger.Get().Info(ctx, "generated wines successfully", logger.Int("count", len(wines)))
	return wines
}

// generateQuality draws a hidden quality from the weighted tiers.
func generateQuality() float64 {
	tier, _ := rand.Int(rand.Reader, big.NewInt(qualityTierDivisor))
	switch tier.Int64() {
	case caseEveryday:
		return everydayMin + getRandomFloat()*everydayRange
	case caseSolid:
		return solidMin + getRandomFloat()*solidRange
	case caseFine:
		return fineMin + getRandomFloat()*fineRange
	case caseGrand:
		return grandMin + getRandomFloat()*grandRange
	case caseFlawed:
		return flawedMin + getRandomFloat()*flawedRange
	default:
		return everydayMin + getRandomFloat()*everydayRange
	}
}

// pickWinner chooses between two wines by hidden quality with tasting noise,
// so better wines win most duels but not all of them.
func pickWinner(a, b Wine) string {
	const noise = 1.5
	scoreA := a.Quality + (getRandomFloat()-0.5)*noise
	scoreB := b.Quality + (getRandomFloat()-0.5)*noise
	if scoreA >= scoreB {
		return a.ID
	}
	return b.ID
}
