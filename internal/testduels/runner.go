package testduels

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vitislabs/decant/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete duel test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting decant duel test",
		logger.String("baseURL", config.BaseURL),
		logger.String("userID", config.UserID),
		logger.Int("wines", config.NumWines),
		logger.Int("duels", config.NumDuels),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and seed the cellar
	wines := generateWines(ctx, config, stats)
	if err := seedCellar(ctx, config, wines); err != nil {
		return fmt.Errorf("cellar seeding failed: %w", err)
	}

	// Step 3: Run the duels
	if err := runDuels(ctx, config, wines, stats); err != nil {
		return fmt.Errorf("duel loop failed: %w", err)
	}

	// Step 4: Let the reposition tasks drain
	logger.Get().Info(ctx, "waiting for repositioning to settle")
	time.Sleep(RepositionSettleDelay)

	// Step 5: Fetch and verify rankings
	client := newHTTPClient(config.Timeout)
	rankings, err := fetchRankings(client, config)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}
	if err := verifyRankings(config, wines, rankings, stats); err != nil {
		return fmt.Errorf("ranking verification failed: %w", err)
	}

	// Step 6: Save seeded wines to file
	if err := saveWinesToFile(ctx, config, wines); err != nil {
		logger.Get().Warn(ctx, "failed to save wines to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(config.BaseURL + "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveWinesToFile saves the seeded wines and their hidden qualities.
func saveWinesToFile(ctx context.Context, config *Config, wines []Wine) error {
	if len(wines) == 0 {
		return fmt.Errorf("no wines to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "seeded_wines_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Include the hidden quality in the dump so a failed run can be replayed.
	type dumpRow struct {
		Wine
		Quality float64 `json:"quality"`
	}
	rows := make([]dumpRow, len(wines))
	for i, w := range wines {
		rows[i] = dumpRow{Wine: w, Quality: w.Quality}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wines: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "wines saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, duelsPerSecond float64

	if stats.DuelsRun > 0 {
		successRate = float64(stats.DuelsAccepted) / float64(stats.DuelsRun) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		duelsPerSecond = float64(stats.DuelsRun) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("winesSeeded", stats.WinesSeeded),
		logger.Int("duelsRun", stats.DuelsRun),
		logger.Int("duelsAccepted", stats.DuelsAccepted),
		logger.Int("duelsDuplicate", stats.DuelsDuplicate),
		logger.Int("duelsFailed", stats.DuelsFailed),
		logger.Int("rankingsFetched", stats.RankingsFetched),
		logger.Float64("orderAgreement", stats.OrderAgreement),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("duelsPerSecond", duelsPerSecond))
}
