package testduels

import "time"

// Config holds configuration for the duel load test.
type Config struct {
	BaseURL    string        // Base URL of the service
	UserID     string        // Test user owning the cellar
	NumWines   int           // Number of wines to seed
	NumDuels   int           // Number of duels to run
	Workers    int           // Number of concurrent workers for seeding
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for seeded wines
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
}

// Wine mirrors the POST /wines payload, with the hidden quality the duel
// loop uses to decide winners.
type Wine struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Producer string  `json:"producer"`
	Quality  float64 `json:"-"` // never sent; drives winner choice
}

// RankedWine mirrors the GET /rankings entry shape.
type RankedWine struct {
	Position int     `json:"position"`
	EloScore float64 `json:"elo_score"`
	Wine     struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"wine"`
}

// PairResponse mirrors the GET /duel/next shape.
type PairResponse struct {
	Status string `json:"status"`
	Pair   *struct {
		WineA struct {
			ID string `json:"id"`
		} `json:"wine_a"`
		WineB struct {
			ID string `json:"id"`
		} `json:"wine_b"`
		WineAIsNew bool `json:"wine_a_is_new"`
	} `json:"pair"`
}

// AckResponse mirrors the POST /duel response.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics.
type Stats struct {
	WinesSeeded     int
	DuelsRun        int
	DuelsAccepted   int
	DuelsDuplicate  int
	DuelsFailed     int
	RankingsFetched int
	OrderAgreement  float64 // fraction of adjacent ranking pairs matching quality order
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
