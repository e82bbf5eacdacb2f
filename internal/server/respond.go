package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

var noAttempts = []observ.ProviderAttempt{}

type meta struct {
	RequestID        string                   `json:"requestId"`
	ProviderAttempts []observ.ProviderAttempt `json:"providerAttempts"`
	CacheHit         *bool                    `json:"cacheHit,omitempty"`
}

func newMeta(requestID string, attempts []observ.ProviderAttempt) meta {
	if attempts == nil {
		attempts = noAttempts
	}
	return meta{RequestID: requestID, ProviderAttempts: attempts}
}

func (m meta) withCacheHit(hit bool) meta {
	m.CacheHit = &hit
	return m
}

type errorBody struct {
	Error     string            `json:"error"`
	Providers map[string]string `json:"providers,omitempty"`
	Meta      meta              `json:"meta"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// chainStatus maps an aggregate provider failure to an HTTP status: 503 when
// nothing was configured, 502 when everything configured failed.
func chainStatus(err error) (int, *adapters.ChainError) {
	var ce *adapters.ChainError
	if errors.As(err, &ce) {
		if ce.NoneConfigured() {
			return http.StatusServiceUnavailable, ce
		}
		return http.StatusBadGateway, ce
	}
	return http.StatusBadGateway, nil
}

func chainReasons(ce *adapters.ChainError) map[string]string {
	if ce == nil || len(ce.Reasons) == 0 {
		return map[string]string{}
	}
	return ce.Reasons
}

func chainAttempts(ce *adapters.ChainError) []observ.ProviderAttempt {
	if ce == nil {
		return nil
	}
	return ce.Attempts
}
