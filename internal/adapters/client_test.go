package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendsAuthParam(t *testing.T) {
	var got url.Values
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		writeJSONBody(w, map[string]any{"ok": true})
	})
	c := NewClient("finnhub", "token", "", cfg)

	var out struct{ OK bool }
	require.NoError(t, c.GetJSON(context.Background(), "AAPL", "/quote", url.Values{"symbol": {"AAPL"}}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, testKey, got.Get("token"))
	assert.Equal(t, "AAPL", got.Get("symbol"))
}

func TestClient_MissingKey(t *testing.T) {
	c := NewClient("polygon", "apiKey", "http://127.0.0.1:1", ProviderConfig{})
	assert.False(t, c.HasKey())

	err := c.GetJSON(context.Background(), "AAPL", "/x", nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, KindConfigMissing, KindOf(err))
}

func TestClient_Non2xxIsTransportError(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"API limit reached"}`))
	})
	c := NewClient("finnhub", "token", "", cfg)

	err := c.GetJSON(context.Background(), "AAPL", "/quote", nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Contains(t, err.Error(), "API limit reached")
	assert.NotContains(t, err.Error(), testKey)
}

func TestClient_MalformedJSON(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	c := NewClient("finnhub", "token", "", cfg)

	err := c.GetJSON(context.Background(), "AAPL", "/quote", nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Contains(t, err.Error(), "malformed JSON")
}

func TestClient_NetworkErrorDoesNotLeakKey(t *testing.T) {
	c := NewClient("polygon", "apiKey", "", ProviderConfig{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  testKey,
	})

	err := c.GetJSON(context.Background(), "AAPL", "/v2/x", nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.NotContains(t, err.Error(), testKey)
}

func TestClient_DailyCap(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, map[string]any{})
	})
	cfg.DailyCap = 2
	c := NewClient("alphavantage", "apikey", "", cfg)

	ctx := context.Background()
	require.NoError(t, c.GetJSON(ctx, "", "/query", nil, &struct{}{}))
	require.NoError(t, c.GetJSON(ctx, "", "/query", nil, &struct{}{}))
	err := c.GetJSON(ctx, "", "/query", nil, &struct{}{})
	require.Error(t, err)
	assert.Equal(t, KindSemantic, KindOf(err))

	used, total, _ := c.BudgetStatus()
	assert.Equal(t, 2, used)
	assert.Equal(t, 2, total)
}

func TestClient_RateLimitBeyondTimeoutFailsFast(t *testing.T) {
	var hits atomic.Int32
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSONBody(w, map[string]any{})
	})
	cfg.TimeoutSeconds = 1
	cfg.RateLimitPerMinute = 1
	cfg.Burst = 1
	c := NewClient("polygon", "apiKey", "", cfg)

	ctx := context.Background()
	require.NoError(t, c.GetJSON(ctx, "AAPL", "/x", nil, &struct{}{}))

	start := time.Now()
	err := c.GetJSON(ctx, "AAPL", "/x", nil, &struct{}{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, KindSemantic, KindOf(err))
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, int32(1), hits.Load())

	used, _, _ := c.BudgetStatus()
	assert.Equal(t, 1, used, "a rejected slot does not spend the daily budget")
}

func TestClient_ShortRateLimitWaitSucceeds(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, map[string]any{})
	})
	cfg.TimeoutSeconds = 1
	cfg.RateLimitPerMinute = 600 // one token every 100ms
	cfg.Burst = 1
	c := NewClient("finnhub", "token", "", cfg)

	ctx := context.Background()
	require.NoError(t, c.GetJSON(ctx, "AAPL", "/quote", nil, &struct{}{}))
	start := time.Now()
	require.NoError(t, c.GetJSON(ctx, "AAPL", "/quote", nil, &struct{}{}))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestClient_CancelledContext(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSONBody(w, map[string]any{})
	})
	c := NewClient("finnhub", "token", "", cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.GetJSON(ctx, "AAPL", "/quote", nil, &struct{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
