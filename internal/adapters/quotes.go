package adapters

import (
	"context"
	"math"
	"strings"
)

// Quote is the normalized real-time quote. Field names follow the compact
// shape the front end consumes.
type Quote struct {
	C  float64 `json:"c"`  // current price
	D  float64 `json:"d"`  // absolute change
	DP float64 `json:"dp"` // percent change
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"` // previous close
	T  int64   `json:"t"`  // observation time, epoch seconds
}

// Profile is best-effort company metadata returned alongside a quote.
type Profile struct {
	Ticker               string  `json:"ticker,omitempty"`
	Name                 string  `json:"name,omitempty"`
	Exchange             string  `json:"exchange,omitempty"`
	Currency             string  `json:"currency,omitempty"`
	Country              string  `json:"country,omitempty"`
	Industry             string  `json:"industry,omitempty"`
	Logo                 string  `json:"logo,omitempty"`
	WebURL               string  `json:"weburl,omitempty"`
	MarketCapitalization float64 `json:"marketCapitalization,omitempty"`
	IPO                  string  `json:"ipo,omitempty"`
}

// QuoteResult is what a quote adapter returns on success.
type QuoteResult struct {
	Quote   Quote
	Profile Profile
}

// SearchCandidate is one raw search hit after minimal validation.
type SearchCandidate struct {
	Symbol        string `json:"symbol"`
	DisplaySymbol string `json:"displaySymbol"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	Exchange      string `json:"exchange"`
	Provider      string `json:"provider"`
}

// Provider identifies an upstream and whether it may be called.
type Provider interface {
	Name() string
	Configured() bool
}

type SearchProvider interface {
	Provider
	Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error)
}

type QuoteProvider interface {
	Provider
	Quote(ctx context.Context, symbol string) (*QuoteResult, error)
}

type CandleProvider interface {
	Provider
	Candles(ctx context.Context, req CandleRequest) (*CandleSeries, error)
}

// Adapter is an upstream able to serve every capability.
type Adapter interface {
	SearchProvider
	QuoteProvider
	CandleProvider
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if finite(v) {
		return v
	}
	return 0
}

// ValidateQuote rejects quotes without a usable price; providers signal an
// unknown symbol with a zero price. Missing change fields are derived from the
// previous close.
func ValidateQuote(provider, symbol string, q *Quote) error {
	if q == nil {
		return NewSemanticError(provider, symbol, "empty quote")
	}
	if !finite(q.C) || q.C <= 0 {
		return NewSemanticError(provider, symbol, "no price for symbol")
	}
	q.D = finiteOrZero(q.D)
	q.DP = finiteOrZero(q.DP)
	q.H = finiteOrZero(q.H)
	q.L = finiteOrZero(q.L)
	q.O = finiteOrZero(q.O)
	q.PC = finiteOrZero(q.PC)
	if q.PC > 0 && q.D == 0 && q.DP == 0 && q.C != q.PC {
		q.D = q.C - q.PC
		q.DP = q.D / q.PC * 100
	}
	if q.T < 0 {
		q.T = 0
	}
	return nil
}

// NormalizeSymbol trims and uppercases a requested ticker and folds common
// class-share spellings to the dotted form.
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return ""
	}
	switch {
	case symbol == "BRK-A" || symbol == "BRK/A":
		return "BRK.A"
	case symbol == "BRK-B" || symbol == "BRK/B":
		return "BRK.B"
	case strings.HasSuffix(symbol, ".US"):
		return strings.TrimSuffix(symbol, ".US")
	default:
		return symbol
	}
}

// ValidSymbol reports whether s is a plausible ticker.
func ValidSymbol(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '^', r == ':', r == '=':
		default:
			return false
		}
	}
	return true
}
