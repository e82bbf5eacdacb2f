package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ProviderConfig holds connection settings for one upstream.
type ProviderConfig struct {
	BaseURL            string `yaml:"base_url"`
	APIKey             string `yaml:"api_key"`
	APIKeyEnv          string `yaml:"api_key_env"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	Burst              int    `yaml:"burst"`
	DailyCap           int    `yaml:"daily_cap"` // 0 = unlimited
}

const (
	defaultTimeout    = 8 * time.Second
	maxBodyBytes      = 16 << 20
	bodyPreviewLen    = 120
	defaultRatePerMin = 60
	defaultBurst      = 5
)

// Client performs authenticated JSON GETs against one upstream. Every call
// waits on a token bucket and carries an explicit timeout.
type Client struct {
	provider   string
	baseURL    string
	apiKey     string
	authParam  string
	httpClient *http.Client
	limiter    *rate.Limiter
	dailyCap   int

	mu              sync.Mutex
	requestsToday   int
	budgetResetTime time.Time
}

// NewClient builds a client. authParam is the query parameter carrying the key.
func NewClient(provider, authParam, defaultBaseURL string, cfg ProviderConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	perMin := cfg.RateLimitPerMinute
	if perMin <= 0 {
		perMin = defaultRatePerMin
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &Client{
		provider:        provider,
		baseURL:         baseURL,
		apiKey:          strings.TrimSpace(cfg.APIKey),
		authParam:       authParam,
		httpClient:      &http.Client{Timeout: timeout},
		limiter:         rate.NewLimiter(rate.Limit(float64(perMin)/60), burst),
		dailyCap:        cfg.DailyCap,
		budgetResetTime: time.Now().Add(24 * time.Hour),
	}
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// takeBudget consumes one request from the daily cap.
func (c *Client) takeBudget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().After(c.budgetResetTime) {
		c.requestsToday = 0
		c.budgetResetTime = time.Now().Add(24 * time.Hour)
	}
	if c.dailyCap > 0 && c.requestsToday >= c.dailyCap {
		return false
	}
	c.requestsToday++
	return true
}

// BudgetStatus returns current daily usage.
func (c *Client) BudgetStatus() (used, total int, resetTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestsToday, c.dailyCap, c.budgetResetTime
}

// waitTurn reserves a limiter token and the daily budget. A token further
// away than the client timeout fails at once as rate limited.
func (c *Client) waitTurn(ctx context.Context, symbol string) error {
	res := c.limiter.Reserve()
	if !res.OK() {
		return NewSemanticError(c.provider, symbol, "rate limited")
	}
	delay := res.Delay()
	if delay > c.httpClient.Timeout {
		res.Cancel()
		return NewSemanticError(c.provider, symbol,
			fmt.Sprintf("rate limited: next request slot in %s", delay.Round(time.Millisecond)))
	}
	if !c.takeBudget() {
		res.Cancel()
		return NewSemanticError(c.provider, symbol, "daily request budget exhausted")
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return NewTransportError(c.provider, symbol, "rate limit wait cancelled", ctx.Err())
	}
}

// GetJSON issues GET baseURL+path?params and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, symbol, path string, params url.Values, out any) error {
	if !c.HasKey() {
		return NewConfigMissingError(c.provider)
	}
	if err := c.waitTurn(ctx, symbol); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set(c.authParam, c.apiKey)
	requestURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return NewTransportError(c.provider, symbol, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error repeats the request URL, key included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return NewTransportError(c.provider, symbol, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return NewTransportError(c.provider, symbol, "failed to read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewTransportError(c.provider, symbol,
			fmt.Sprintf("HTTP %d: %s", resp.StatusCode, preview(body)), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewTransportError(c.provider, symbol,
			fmt.Sprintf("malformed JSON: %s", preview(body)), err)
	}
	return nil
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > bodyPreviewLen {
		s = s[:bodyPreviewLen]
	}
	return s
}
