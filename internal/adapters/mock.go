package adapters

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MockAdapter is a scriptable in-memory provider for tests and local runs.
// Unknown symbols fail the way real providers do, with a semantic error.
type MockAdapter struct {
	name       string
	configured bool
	latency    time.Duration

	mu         sync.RWMutex
	quotes     map[string]QuoteResult
	candles    map[string]*CandleSeries
	candidates []SearchCandidate
	err        error

	calls atomic.Int64
}

// NewMockAdapter creates a configured mock named name with no data.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		name:       name,
		configured: true,
		quotes:     map[string]QuoteResult{},
		candles:    map[string]*CandleSeries{},
	}
}

func (m *MockAdapter) Name() string     { return m.name }
func (m *MockAdapter) Configured() bool { return m.configured }

// SetConfigured toggles whether the mock reports holding a key.
func (m *MockAdapter) SetConfigured(ok bool) *MockAdapter {
	m.configured = ok
	return m
}

// SetLatency allows tests to control simulated latency
func (m *MockAdapter) SetLatency(d time.Duration) *MockAdapter {
	m.latency = d
	return m
}

// FailWith makes every call return err until cleared with nil.
func (m *MockAdapter) FailWith(err error) *MockAdapter {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	return m
}

// AddQuote allows tests to add custom quotes
func (m *MockAdapter) AddQuote(symbol string, q Quote, p Profile) *MockAdapter {
	m.mu.Lock()
	m.quotes[strings.ToUpper(symbol)] = QuoteResult{Quote: q, Profile: p}
	m.mu.Unlock()
	return m
}

// AddCandles registers a series returned for symbol at any range.
func (m *MockAdapter) AddCandles(symbol string, s *CandleSeries) *MockAdapter {
	m.mu.Lock()
	m.candles[strings.ToUpper(symbol)] = s
	m.mu.Unlock()
	return m
}

// AddCandidates appends search results returned for every query.
func (m *MockAdapter) AddCandidates(cs ...SearchCandidate) *MockAdapter {
	m.mu.Lock()
	for _, c := range cs {
		if c.Provider == "" {
			c.Provider = m.name
		}
		m.candidates = append(m.candidates, c)
	}
	m.mu.Unlock()
	return m
}

// Calls is the number of provider calls made so far.
func (m *MockAdapter) Calls() int64 { return m.calls.Load() }

func (m *MockAdapter) begin(ctx context.Context) error {
	m.calls.Add(1)
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return NewTransportError(m.name, "", "request cancelled", ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return NewTransportError(m.name, "", "request cancelled", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *MockAdapter) Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]SearchCandidate(nil), m.candidates...), nil
}

func (m *MockAdapter) Quote(ctx context.Context, symbol string) (*QuoteResult, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	res, ok := m.quotes[strings.ToUpper(symbol)]
	m.mu.RUnlock()
	if !ok {
		return nil, NewSemanticError(m.name, symbol, "symbol not found in mock data")
	}
	if err := ValidateQuote(m.name, symbol, &res.Quote); err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MockAdapter) Candles(ctx context.Context, req CandleRequest) (*CandleSeries, error) {
	if err := m.begin(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	s, ok := m.candles[strings.ToUpper(req.Symbol)]
	m.mu.RUnlock()
	if !ok {
		return nil, NewSemanticError(m.name, req.Symbol, "no_data")
	}
	return s, nil
}
