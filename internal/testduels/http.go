package testduels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// seedCellar pushes every wine into the catalog and the test user's cellar
// using a worker pool.
func seedCellar(ctx context.Context, config *Config, wines []Wine) error {
	log.Printf("seeding %d wines with %d workers...", len(wines), config.Workers)

	client := newHTTPClient(config.Timeout)
	var failed int64

	wineChan := make(chan Wine, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for wine := range wineChan {
				select {
				case <-ctx.Done():
					return
				default:
					if err := seedSingleWine(client, config, wine); err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to seed wine %s: %v", wine.ID, err)
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(wineChan)
		for _, wine := range wines {
			select {
			case <-ctx.Done():
				return
			case wineChan <- wine:
			}
		}
	}()

	wg.Wait()

	if n := atomic.LoadInt64(&failed); n > 0 {
		return fmt.Errorf("%d of %d wines failed to seed", n, len(wines))
	}
	log.Printf("seeded %d wines into cellar of %s", len(wines), config.UserID)
	return nil
}

// seedSingleWine creates the catalog entry then the cellar link.
func seedSingleWine(client *HTTPClient, config *Config, wine Wine) error {
	resp, err := client.Post(config.BaseURL+"/wines", wine)
	if err != nil {
		return fmt.Errorf("posting wine: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != StatusCreated {
		return fmt.Errorf("POST /wines returned HTTP %d", resp.StatusCode)
	}

	item := map[string]string{
		"user_id": config.UserID,
		"wine_id": wine.ID,
		"status":  "had",
	}
	resp, err = client.Post(config.BaseURL+"/cellar", item)
	if err != nil {
		return fmt.Errorf("posting cellar item: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != StatusCreated {
		return fmt.Errorf("POST /cellar returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// runDuels drives the duel loop: fetch a pair, pick a winner by hidden
// quality, submit the outcome. Sequential by design, matching how a real
// tasting session interleaves prompt and answer.
func runDuels(ctx context.Context, config *Config, wines []Wine, stats *Stats) error {
	log.Printf("running %d duels...", config.NumDuels)

	client := newHTTPClient(config.Timeout)
	byID := make(map[string]Wine, len(wines))
	for _, w := range wines {
		byID[w.ID] = w
	}

	var lastReport time.Time
	reportInterval := 1 * time.Second

	for i := 0; i < config.NumDuels; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during duels: %w", ctx.Err())
		default:
		}

		pair, err := fetchPair(client, config)
		if err != nil {
			stats.DuelsFailed++
			if config.Verbose {
				log.Printf("pair fetch failed: %v", err)
			}
			continue
		}
		if pair == nil {
			return fmt.Errorf("insufficient candidates after seeding %d wines", len(wines))
		}

		wineA, okA := byID[pair.WineA.ID]
		wineB, okB := byID[pair.WineB.ID]
		if !okA || !okB {
			return fmt.Errorf("pair references unseeded wine %s/%s", pair.WineA.ID, pair.WineB.ID)
		}

		result := submitDuel(client, config, wineA, wineB)
		stats.DuelsRun++
		switch result {
		case "accepted":
			stats.DuelsAccepted++
		case "duplicate":
			stats.DuelsDuplicate++
		default:
			stats.DuelsFailed++
		}

		if time.Since(lastReport) >= reportInterval {
			lastReport = time.Now()
			log.Printf("duels: %d/%d (accepted: %d, duplicate: %d, failed: %d)",
				stats.DuelsRun, config.NumDuels, stats.DuelsAccepted, stats.DuelsDuplicate, stats.DuelsFailed)
		}
	}

	log.Printf("duels completed: accepted %d, duplicate %d, failed %d",
		stats.DuelsAccepted, stats.DuelsDuplicate, stats.DuelsFailed)
	return nil
}

// fetchPair returns the next pair, or nil on the insufficient outcome.
func fetchPair(client *HTTPClient, config *Config) (*struct {
	WineA struct {
		ID string `json:"id"`
	} `json:"wine_a"`
	WineB struct {
		ID string `json:"id"`
	} `json:"wine_b"`
	WineAIsNew bool `json:"wine_a_is_new"`
}, error) {
	resp, err := client.Get(config.BaseURL + "/duel/next?user_id=" + config.UserID)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var pr PairResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if pr.Status == "insufficient" {
		return nil, nil
	}
	return pr.Pair, nil
}

// submitDuel posts the outcome and classifies the response.
func submitDuel(client *HTTPClient, config *Config, wineA, wineB Wine) string {
	payload := map[string]string{
		"comparison_id": uuid.New().String(),
		"user_id":       config.UserID,
		"wine_a_id":     wineA.ID,
		"wine_b_id":     wineB.ID,
		"winner_id":     pickWinner(wineA, wineB),
	}

	resp, err := client.Post(config.BaseURL+"/duel", payload)
	if err != nil {
		return "failed"
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		return "accepted"
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}

// fetchRankings retrieves the user's full ranking list.
func fetchRankings(client *HTTPClient, config *Config) ([]RankedWine, error) {
	resp, err := client.Get(config.BaseURL + "/rankings?user_id=" + config.UserID)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var rankings []RankedWine
	if err := json.Unmarshal(body, &rankings); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return rankings, nil
}
