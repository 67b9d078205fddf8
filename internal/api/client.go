// Package api talks to the ContestHub backend on behalf of the signed-in user.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second
	defaultBurst   = 10
)

// TokenSource yields the bearer token of the Persisted Record. An empty token means no
// Authorization header is sent.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Metrics interface {
	ObserveRequest(method, category string, duration time.Duration)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second; zero disables throttling.
	RateLimit float64
	Burst     int
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	metrics    Metrics
	logger     *zap.Logger
}

func NewClient(cfg Config, tokens TokenSource, metrics Metrics, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		metrics:    metrics,
		logger:     logger.Named("api"),
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	return c
}

// do sends one request with the stored token and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	return c.doWithToken(ctx, token, method, path, body, out)
}

func (c *Client) doWithToken(ctx context.Context, token, method, path string, body, out any) error {
	data, err := c.send(ctx, token, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, token, method, path string, body any) ([]byte, error) {
	start := time.Now()
	data, err := c.roundTrip(ctx, token, method, path, body)

	category := "ok"
	if cat := CategoryOf(err); cat != "" {
		category = string(cat)
	}
	if c.metrics != nil {
		c.metrics.ObserveRequest(method, category, time.Since(start))
	}
	if err != nil {
		c.logger.Debug("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("category", category),
			zap.Error(err))
	}
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, token, method, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, networkError(err)
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}
