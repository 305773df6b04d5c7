package testduels

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/vitislabs/decant/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "duel_test_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the duel test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Decant Duel Test Tool
=====================

Seeds a wine cellar, runs duels against a running Decant service and
verifies the resulting Elo ranking.

Usage:
  go run cmd/test-duels/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -user string
        Test user id (default "duel-tester")
  -wines int
        Number of wines to seed into the cellar (default 100)
  -duels int
        Number of duels to run (default 2000)
  -workers int
        Number of concurrent workers for seeding (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for seeded wines (default: seeded_wines_TIMESTAMP.json)
  -log string
        Log file for test output (default: duel_test_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-duels/main.go

  # A long tasting session on a big cellar
  go run cmd/test-duels/main.go -wines 500 -duels 20000 -workers 16
`)
}
