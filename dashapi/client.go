package dashapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"market-stats-go/metrics"
)

const (
	pathSignals    = "/api/signals"
	pathWatchlists = "/api/watchlists"
	maxBodyBytes   = 4 << 20
)

// Client 仪表盘 REST 客户端。不做自动重试，由调用方根据 APIError.Retryable 决定。
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// NewClient ratePerSec<=0 表示不限速。
func NewClient(baseURL, token string, ratePerSec float64, burst int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if ratePerSec > 0 {
		if burst <= 0 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return c
}

// ListSignals GET /api/signals，响应体为 JSON 数组。
func (c *Client) ListSignals(ctx context.Context) ([]Signal, error) {
	var out []Signal
	if err := c.do(ctx, http.MethodGet, pathSignals, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Signal{}
	}
	return out, nil
}

// ListWatchlists GET /api/watchlists，响应体为 {"watchlists": [...]}。
func (c *Client) ListWatchlists(ctx context.Context) ([]Watchlist, error) {
	var env watchlistsEnvelope
	if err := c.do(ctx, http.MethodGet, pathWatchlists, nil, &env); err != nil {
		return nil, err
	}
	if env.Watchlists == nil {
		env.Watchlists = []Watchlist{}
	}
	return env.Watchlists, nil
}

// CreateWatchlist POST /api/watchlists。
func (c *Client) CreateWatchlist(ctx context.Context, name, description string) (Watchlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Watchlist{}, ErrEmptyName
	}
	var out Watchlist
	req := createWatchlistRequest{Name: name, Description: description}
	if err := c.do(ctx, http.MethodPost, pathWatchlists, req, &out); err != nil {
		return Watchlist{}, err
	}
	if out.Name == "" {
		out.Name = name
		out.Description = description
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (err error) {
	endpoint := method + " " + path
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.APIRequests.WithLabelValues(path, outcome).Inc()
	}()

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return transportError(endpoint, err)
		}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return transportError(endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return transportError(endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(endpoint, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("decode response: %v", err),
			Err:      err,
		}
	}
	return nil
}
