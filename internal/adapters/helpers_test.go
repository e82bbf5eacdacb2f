package adapters

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testKey = "sk-test-123456"

// upstream starts a fake provider and returns a config pointing at it.
func upstream(t *testing.T, h http.HandlerFunc) ProviderConfig {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return ProviderConfig{
		BaseURL:            srv.URL,
		APIKey:             testKey,
		TimeoutSeconds:     2,
		RateLimitPerMinute: 60000,
		Burst:              100,
	}
}

func writeJSONBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
