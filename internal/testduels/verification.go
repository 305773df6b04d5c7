package testduels

import (
	"fmt"
	"log"
)

// verifyRankings checks the structural invariants of the returned ranking
// and measures how well it recovered the hidden quality order.
func verifyRankings(config *Config, wines []Wine, rankings []RankedWine, stats *Stats) error {
	log.Println("verifying rankings...")

	if len(rankings) == 0 {
		return fmt.Errorf("no rankings to verify")
	}
	stats.RankingsFetched = len(rankings)

	// Positions must be dense 1..N in order.
	for i, entry := range rankings {
		if entry.Position != i+1 {
			return fmt.Errorf("positions not dense: entry %d has position %d", i, entry.Position)
		}
	}

	// Scores must be non-increasing down the list.
	for i := 1; i < len(rankings); i++ {
		if rankings[i].EloScore > rankings[i-1].EloScore {
			return fmt.Errorf("scores not sorted: position %d outscores position %d",
				rankings[i].Position, rankings[i-1].Position)
		}
	}

	// Measure agreement between ranking order and hidden quality order over
	// adjacent pairs. Noise keeps this below 1.0; a coin flip would be 0.5.
	quality := make(map[string]float64, len(wines))
	for _, w := range wines {
		quality[w.ID] = w.Quality
	}
	agree, total := 0, 0
	for i := 1; i < len(rankings); i++ {
		qa, okA := quality[rankings[i-1].Wine.ID]
		qb, okB := quality[rankings[i].Wine.ID]
		if !okA || !okB {
			continue
		}
		total++
		if qa >= qb {
			agree++
		}
	}
	if total > 0 {
		stats.OrderAgreement = float64(agree) / float64(total)
	}

	displayTopWines(rankings, config.Verbose)
	log.Printf("ranking verification completed (order agreement: %.0f%%)",
		stats.OrderAgreement*PercentageMultiplier)
	return nil
}

// displayTopWines shows the head of the ranking.
func displayTopWines(rankings []RankedWine, verbose bool) {
	topN := 10
	if len(rankings) < topN {
		topN = len(rankings)
	}

	log.Printf("top %d wines:", topN)
	for i := 0; i < topN; i++ {
		entry := rankings[i]
		log.Printf("   %d. %s - score: %.1f", entry.Position, entry.Wine.Name, entry.EloScore)
	}

	if verbose && len(rankings) > 0 {
		sum := 0.0
		for _, entry := range rankings {
			sum += entry.EloScore
		}
		log.Printf("score stats: avg %.1f, max %.1f, min %.1f",
			sum/float64(len(rankings)),
			rankings[0].EloScore,
			rankings[len(rankings)-1].EloScore)
	}
}
