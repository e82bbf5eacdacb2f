package search

import (
	"regexp"
	"strings"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
)

var (
	disallowedType = regexp.MustCompile(`(?i)\b(forex|fx|crypto|cryptocurrency|digital currency|index|indices|futures?|options?|bonds?|warrants?|cfds?)\b`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
)

// Corporate suffixes stripped from the end of a description when building a
// company key. Multi-word suffixes are matched as token pairs.
var (
	corporateSuffixes = map[string]bool{
		"inc": true, "incorporated": true, "corp": true, "corporation": true,
		"co": true, "company": true, "ag": true, "se": true, "sa": true,
		"nv": true, "plc": true, "ltd": true, "limited": true, "llc": true,
		"the": true,
	}
	corporateSuffixPairs = map[string]bool{
		"common stock": true, "ordinary shares": true, "common shares": true,
		"class a": true, "class b": true, "class c": true,
	}
)

// minCompanyKeyLen is the shortest normalized name considered distinctive.
const minCompanyKeyLen = 3

// sanitize normalizes a raw candidate and reports whether it is rankable.
func sanitize(c adapters.SearchCandidate) (adapters.SearchCandidate, bool) {
	c.Symbol = stripExchangePrefix(strings.ToUpper(strings.TrimSpace(c.Symbol)))
	c.Description = strings.TrimSpace(c.Description)
	c.Type = strings.TrimSpace(c.Type)
	c.Exchange = strings.TrimSpace(c.Exchange)
	if c.Symbol == "" || c.Description == "" {
		return c, false
	}
	c.DisplaySymbol = stripExchangePrefix(strings.ToUpper(strings.TrimSpace(c.DisplaySymbol)))
	if c.DisplaySymbol == "" {
		c.DisplaySymbol = c.Symbol
	}

	screened := c.Type
	if screened == "" {
		screened = c.Description
	}
	if disallowedType.MatchString(screened) {
		return c, false
	}
	return c, true
}

// stripExchangePrefix turns "NASDAQ:AAPL" into "AAPL".
func stripExchangePrefix(symbol string) string {
	if i := strings.LastIndex(symbol, ":"); i >= 0 {
		return symbol[i+1:]
	}
	return symbol
}

// baseTicker is the part of a symbol before any exchange-suffix dot.
func baseTicker(symbol string) string {
	if i := strings.Index(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}

func nameTokens(s string) []string {
	return strings.Fields(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// companyKey identifies the company a candidate refers to: the description
// without trailing corporate suffixes, or the base ticker when that is too
// short to tell companies apart.
func companyKey(c adapters.SearchCandidate) string {
	tokens := nameTokens(c.Description)
	for len(tokens) > 0 {
		n := len(tokens)
		if n >= 2 && corporateSuffixPairs[tokens[n-2]+" "+tokens[n-1]] {
			tokens = tokens[:n-2]
			continue
		}
		if corporateSuffixes[tokens[n-1]] {
			tokens = tokens[:n-1]
			continue
		}
		break
	}
	key := strings.Join(tokens, " ")
	if len(key) < minCompanyKeyLen {
		return "ticker:" + baseTicker(c.Symbol)
	}
	return key
}
