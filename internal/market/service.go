// Package market answers search, quote and candle requests by running the
// configured provider chains.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
	"github.com/Rajchodisetti/market-gateway/internal/observ"
	"github.com/Rajchodisetti/market-gateway/internal/search"
)

// Route names as recorded in the attempt log.
const (
	RouteSearch  = "search"
	RouteQuote   = "quote"
	RouteCandles = "candles"
)

// CacheProvider is the provider name reported for cache hits.
const CacheProvider = "cache"

// Chains lists the providers for each route in priority order.
type Chains struct {
	Search  []adapters.Adapter
	Quote   []adapters.Adapter
	Candles []adapters.Adapter
}

// ResolveChains looks up provider names in reg.
func ResolveChains(reg *adapters.Registry, searchNames, quoteNames, candleNames []string) (Chains, error) {
	var c Chains
	var err error
	if c.Search, err = reg.Chain(searchNames); err != nil {
		return c, fmt.Errorf("search chain: %w", err)
	}
	if c.Quote, err = reg.Chain(quoteNames); err != nil {
		return c, fmt.Errorf("quote chain: %w", err)
	}
	if c.Candles, err = reg.Chain(candleNames); err != nil {
		return c, fmt.Errorf("candle chain: %w", err)
	}
	return c, nil
}

// Service runs provider chains. It is safe for concurrent use.
type Service struct {
	chains   Chains
	recorder adapters.AttemptRecorder
	cache    *adapters.CandleCache
	logger   *observ.Logger
	now      func() time.Time
}

// NewService wires a service. logger may be nil.
func NewService(chains Chains, recorder adapters.AttemptRecorder, cache *adapters.CandleCache, logger *observ.Logger) *Service {
	if logger == nil {
		logger = observ.NewSilentLogger()
	}
	return &Service{
		chains:   chains,
		recorder: recorder,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// SearchResult is a ranked search response.
type SearchResult struct {
	Results  []adapters.SearchCandidate
	Attempts []observ.ProviderAttempt
}

// Search fans out to every search provider and ranks the merged candidates.
// An empty query returns immediately without calling any provider. The error
// is a *adapters.ChainError only when no provider succeeded.
func (s *Service) Search(ctx context.Context, requestID, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	out := &SearchResult{Results: []adapters.SearchCandidate{}, Attempts: []observ.ProviderAttempt{}}
	if query == "" {
		return out, nil
	}
	limit = search.ClampLimit(limit)

	call := adapters.Call{RequestID: requestID, Route: RouteSearch}
	results, attempts, err := adapters.FanOut(ctx, s.recorder, call, s.chains.Search,
		func(ctx context.Context, p adapters.Adapter) ([]adapters.SearchCandidate, error) {
			return p.Search(ctx, query, limit)
		})
	out.Attempts = attempts

	var merged []adapters.SearchCandidate
	for _, r := range results {
		if r.Err == nil {
			merged = append(merged, r.Value...)
		}
	}
	out.Results = search.Candidates(search.Rank(merged, query, limit))

	if err != nil && len(out.Results) == 0 {
		s.logFailure(requestID, RouteSearch, err)
		return out, err
	}
	return out, nil
}

// QuoteResult is the first successful quote in the chain.
type QuoteResult struct {
	Quote    adapters.Quote
	Profile  adapters.Profile
	Provider string
	Attempts []observ.ProviderAttempt
}

// Quote walks the quote chain for symbol.
func (s *Service) Quote(ctx context.Context, requestID, symbol string) (*QuoteResult, error) {
	symbol = adapters.NormalizeSymbol(symbol)
	call := adapters.Call{RequestID: requestID, Route: RouteQuote}

	res, err := adapters.RunChain(ctx, s.recorder, call, s.chains.Quote,
		func(ctx context.Context, p adapters.Adapter) (*adapters.QuoteResult, error) {
			return p.Quote(ctx, symbol)
		})
	if err != nil {
		s.logFailure(requestID, RouteQuote, err)
		return nil, err
	}
	return &QuoteResult{
		Quote:    res.Value.Quote,
		Profile:  res.Value.Profile,
		Provider: res.Provider,
		Attempts: res.Attempts,
	}, nil
}

// CandleResult is a normalized series and where it came from.
type CandleResult struct {
	Series     *adapters.CandleSeries
	Symbol     string
	Range      adapters.Range
	Resolution adapters.Resolution
	Provider   string
	CacheHit   bool
	Attempts   []observ.ProviderAttempt
}

// Candles serves from cache when a live entry exists, otherwise walks the
// candle chain and caches the first success.
func (s *Service) Candles(ctx context.Context, requestID, symbol string, r adapters.Range) (*CandleResult, error) {
	symbol = adapters.NormalizeSymbol(symbol)

	if hit, ok := s.cache.Get(symbol, r); ok {
		return &CandleResult{
			Series:     hit.Series,
			Symbol:     symbol,
			Range:      r,
			Resolution: hit.Resolution,
			Provider:   hit.Provider,
			CacheHit:   true,
			Attempts: []observ.ProviderAttempt{{
				Provider: CacheProvider,
				Status:   observ.StatusOK,
			}},
		}, nil
	}

	req := adapters.NewCandleRequest(symbol, r, s.now())
	call := adapters.Call{RequestID: requestID, Route: RouteCandles}
	res, err := adapters.RunChain(ctx, s.recorder, call, s.chains.Candles,
		func(ctx context.Context, p adapters.Adapter) (*adapters.CandleSeries, error) {
			return p.Candles(ctx, req)
		})
	if err != nil {
		s.logFailure(requestID, RouteCandles, err)
		return nil, err
	}

	s.cache.Put(symbol, r, adapters.CachedCandles{
		Series:     res.Value,
		Provider:   res.Provider,
		Resolution: req.Resolution,
	}, s.cache.TTL(r))

	return &CandleResult{
		Series:     res.Value,
		Symbol:     symbol,
		Range:      r,
		Resolution: req.Resolution,
		Provider:   res.Provider,
		Attempts:   res.Attempts,
	}, nil
}

func (s *Service) logFailure(requestID, route string, err error) {
	fields := map[string]any{
		"request_id": requestID,
		"route":      route,
		"error":      err.Error(),
	}
	var ce *adapters.ChainError
	if errors.As(err, &ce) {
		fields["configured"] = ce.Configured
		fields["attempts"] = len(ce.Attempts)
	}
	s.logger.Log("provider_chain_failed", fields)
}
