package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/vitislabs/decant/internal/testduels"
)

// Default configuration constants.
const (
	defaultNumWines    = 100
	defaultNumDuels    = 2000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		userID     = flag.String("user", "duel-tester", "Test user id")
		numWines   = flag.Int("wines", defaultNumWines, "Number of wines to seed into the cellar")
		numDuels   = flag.Int("duels", defaultNumDuels, "Number of duels to run")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers for seeding")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for seeded wines (default: seeded_wines_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: duel_test_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testduels.ShowHelp()
		return
	}

	// Setup logging
	if err := testduels.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testduels.Config{
		BaseURL:    *baseURL,
		UserID:     *userID,
		NumWines:   *numWines,
		NumDuels:   *numDuels,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := testduels.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
