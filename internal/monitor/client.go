package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/medtriage/internal/stats"
)

// Health mirrors the /health response body.
type Health struct {
	Status        string `json:"status"`
	Conversations int    `json:"conversations"`
}

// StatsClient reads corpus statistics from a running medtriage server.
type StatsClient struct {
	baseURL string
	client  *http.Client
}

// NewStatsClient creates a new stats client.
func NewStatsClient(baseURL string) *StatsClient {
	return &StatsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// Health queries GET /health.
func (c *StatsClient) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.get(ctx, "/health", &h)
	return h, err
}

// Summary queries GET /api/v1/stats.
func (c *StatsClient) Summary(ctx context.Context) (stats.Summary, error) {
	var s stats.Summary
	err := c.get(ctx, "/api/v1/stats", &s)
	return s, err
}

func (c *StatsClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
