// Package sentiment is an HTTP client for an external sentiment model
// (Hugging Face inference style: POST {"inputs": text}, response a list of
// {label, score}).
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/medtriage/internal/config"
	"github.com/fyrsmithlabs/medtriage/internal/logging"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultBaseBackoff = 500 * time.Millisecond
	maxResponseBytes   = 1 << 20
)

var (
	// ErrEmptyResponse is returned when the model returns no labels.
	ErrEmptyResponse = errors.New("empty sentiment response")
	// ErrMalformedResponse is returned when the body is not a label list.
	ErrMalformedResponse = errors.New("malformed sentiment response")
)

// Prediction is one scored label.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type request struct {
	Inputs string `json:"inputs"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client calls the sentiment endpoint with rate limiting and retries on
// 429, 5xx and network errors. It implements risk.SentimentAnalyzer.
type Client struct {
	baseURL     string
	apiKey      config.Secret
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	logger      *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.baseBackoff = d }
}

// WithLogger sets the client logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg config.SentimentConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("sentiment base URL required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(limit, burst),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: defaultBaseBackoff,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug(context.Background(), "sentiment client configured",
		zap.String("base_url", c.baseURL),
		logging.Secret("api_key", c.apiKey),
		zap.Int("max_retries", c.maxRetries),
		zap.Duration("timeout", timeout))
	return c, nil
}

// Analyze returns the highest scoring label for text.
func (c *Client) Analyze(ctx context.Context, text string) (string, error) {
	preds, err := c.Predict(ctx, text)
	if err != nil {
		return "", err
	}
	return Top(preds).Label, nil
}

// Predict returns every label the model scored for text.
func (c *Client) Predict(ctx context.Context, text string) ([]Prediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(request{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			c.logger.Debug(ctx, "retrying sentiment request",
				zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(lastErr))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		preds, err := c.doRequest(ctx, payload)
		if err == nil {
			return preds, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, payload []byte) ([]Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey.IsSet() {
		req.Header.Set("Authorization", "Bearer "+c.apiKey.Value())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: fmt.Errorf("sentiment request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return nil, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, truncate(body))}
	}
	if resp.StatusCode != http.StatusOK {
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("sentiment API error (%d): %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("sentiment API error (%d): %s", resp.StatusCode, truncate(body))
	}

	return parsePredictions(body)
}

// parsePredictions accepts [[{label,score}]] and [{label,score}].
func parsePredictions(body []byte) ([]Prediction, error) {
	var nested [][]Prediction
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, ErrEmptyResponse
		}
		return validate(nested[0])
	}

	var flat []Prediction
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(flat) == 0 {
		return nil, ErrEmptyResponse
	}
	return validate(flat)
}

func validate(preds []Prediction) ([]Prediction, error) {
	for _, p := range preds {
		if p.Label == "" {
			return nil, fmt.Errorf("%w: prediction without label", ErrMalformedResponse)
		}
	}
	return preds, nil
}

// Top returns the highest scoring prediction; ties keep the first.
func Top(preds []Prediction) Prediction {
	var best Prediction
	for i, p := range preds {
		if i == 0 || p.Score > best.Score {
			best = p
		}
	}
	return best
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
