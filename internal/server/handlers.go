package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// Observability limit bounds.
const (
	defaultObservabilityLimit = 50
	maxObservabilityLimit     = 1000
)

type searchBody struct {
	Result []adapters.SearchCandidate `json:"result"`
	Meta   meta                       `json:"meta"`
}

type searchErrorBody struct {
	Result    []adapters.SearchCandidate `json:"result"`
	Error     string                     `json:"error"`
	Providers map[string]string          `json:"providers"`
	Meta      meta                       `json:"meta"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := s.service.Search(r.Context(), reqID, q, limit)
	if err != nil {
		status, ce := chainStatus(err)
		writeJSON(w, status, searchErrorBody{
			Result:    []adapters.SearchCandidate{},
			Error:     err.Error(),
			Providers: chainReasons(ce),
			Meta:      newMeta(reqID, res.Attempts),
		})
		return
	}
	writeJSON(w, http.StatusOK, searchBody{Result: res.Results, Meta: newMeta(reqID, res.Attempts)})
}

type quoteBody struct {
	Quote    adapters.Quote   `json:"quote"`
	Profile  adapters.Profile `json:"profile"`
	Provider string           `json:"provider"`
	Meta     meta             `json:"meta"`
}

func (s *Server) handleMissingSymbol(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadRequest, errorBody{
		Error: "Missing symbol",
		Meta:  newMeta(RequestID(r.Context()), nil),
	})
}

// symbolParam validates a raw symbol and writes the 400 response itself.
func symbolParam(w http.ResponseWriter, r *http.Request, raw string) (string, bool) {
	symbol := strings.TrimSpace(raw)
	if symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "Missing symbol",
			Meta:  newMeta(RequestID(r.Context()), nil),
		})
		return "", false
	}
	if !adapters.ValidSymbol(symbol) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("Invalid symbol %q", observ.SanitizeError(symbol)),
			Meta:  newMeta(RequestID(r.Context()), nil),
		})
		return "", false
	}
	return strings.ToUpper(symbol), true
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())
	raw := chi.URLParam(r, "symbol")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	symbol, ok := symbolParam(w, r, raw)
	if !ok {
		return
	}

	res, err := s.service.Quote(r.Context(), reqID, symbol)
	if err != nil {
		status, ce := chainStatus(err)
		writeJSON(w, status, errorBody{
			Error:     err.Error(),
			Providers: chainReasons(ce),
			Meta:      newMeta(reqID, chainAttempts(ce)),
		})
		return
	}
	writeJSON(w, http.StatusOK, quoteBody{
		Quote:    res.Quote,
		Profile:  res.Profile,
		Provider: res.Provider,
		Meta:     newMeta(reqID, res.Attempts),
	})
}

type candlesBody struct {
	S          string    `json:"s"`
	T          []int64   `json:"t"`
	O          []float64 `json:"o"`
	H          []float64 `json:"h"`
	L          []float64 `json:"l"`
	C          []float64 `json:"c"`
	V          []float64 `json:"v"`
	Provider   string    `json:"provider"`
	Symbol     string    `json:"symbol"`
	Range      string    `json:"range"`
	Resolution string    `json:"resolution"`
	Meta       meta      `json:"meta"`
}

type candlesErrorBody struct {
	S         string            `json:"s"`
	Error     string            `json:"error"`
	Providers map[string]string `json:"providers,omitempty"`
	Meta      meta              `json:"meta"`
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r.Context())
	fail := func(status int, msg string, reasons map[string]string, attempts []observ.ProviderAttempt) {
		writeJSON(w, status, candlesErrorBody{
			S:         "error",
			Error:     msg,
			Providers: reasons,
			Meta:      newMeta(reqID, attempts).withCacheHit(false),
		})
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		fail(http.StatusBadRequest, "Missing symbol", nil, nil)
		return
	}
	if !adapters.ValidSymbol(symbol) {
		fail(http.StatusBadRequest, fmt.Sprintf("Invalid symbol %q", observ.SanitizeError(symbol)), nil, nil)
		return
	}
	rng, err := adapters.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		fail(http.StatusBadRequest, observ.SanitizeError(err.Error()), nil, nil)
		return
	}

	res, err := s.service.Candles(r.Context(), reqID, strings.ToUpper(symbol), rng)
	if err != nil {
		status, ce := chainStatus(err)
		fail(status, err.Error(), chainReasons(ce), chainAttempts(ce))
		return
	}

	series := res.Series
	writeJSON(w, http.StatusOK, candlesBody{
		S:          "ok",
		T:          series.T,
		O:          series.O,
		H:          series.H,
		L:          series.L,
		C:          series.C,
		V:          series.V,
		Provider:   res.Provider,
		Symbol:     res.Symbol,
		Range:      string(res.Range),
		Resolution: string(res.Resolution),
		Meta:       newMeta(reqID, res.Attempts).withCacheHit(res.CacheHit),
	})
}

func (s *Server) handleObservability(w http.ResponseWriter, r *http.Request) {
	limit := defaultObservabilityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	limit = min(max(limit, 1), maxObservabilityLimit)
	writeJSON(w, http.StatusOK, s.recorder.Snapshot(limit))
}

type healthBody struct {
	Status         string                    `json:"status"`
	Providers      []string                  `json:"providers"`
	Configured     []string                  `json:"configured"`
	ProviderHealth []adapters.ProviderHealth `json:"providerHealth"`
	Budgets        []adapters.BudgetUsage    `json:"budgets"`
	UptimeSeconds  int64                     `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{
		Status:         "ok",
		Providers:      []string{},
		Configured:     []string{},
		ProviderHealth: []adapters.ProviderHealth{},
		Budgets:        []adapters.BudgetUsage{},
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
	}
	if s.health != nil {
		body.ProviderHealth = s.health.Snapshot()
	}
	if s.registry != nil {
		body.Providers = s.registry.Names()
		body.Budgets = s.registry.Budgets()
		if c := s.registry.Configured(); len(c) > 0 {
			body.Configured = c
		}
	}
	writeJSON(w, http.StatusOK, body)
}
