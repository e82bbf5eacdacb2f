package search

import (
	"regexp"
	"strings"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
)

// Symbol match weights.
const (
	SymbolExact     = 1000
	SymbolBaseExact = 600
	SymbolPrefix    = 400
	SymbolContains  = 100
)

// Description match weights.
const (
	DescExact            = 500
	DescPrefix           = 250
	DescWordBonus        = 150
	DescSubstringPenalty = -50
)

// Alias weights.
const (
	AliasExact         = 2000
	AliasPrefix        = 1500
	QueryPrefixOfAlias = 1000
	minAliasQueryLen   = 3
)

// Type, name-length and instrument weights.
const (
	TypeCommonStock    = 40
	TypeStock          = 25
	TypeADR            = 10
	LongNameWordLimit  = 4
	LongNamePenalty    = -15
	LeveragedPenalty   = -800
	DefaultExchangeFit = 10
)

var exchangeWeights = map[string]float64{
	"NASDAQ":        120,
	"XNAS":          120,
	"NYSE":          120,
	"XNYS":          120,
	"US":            100,
	"UNITED STATES": 100,
	"NYSE ARCA":     60,
	"ARCX":          60,
	"BATS":          50,
	"XETRA":         40,
	"LSE":           40,
	"XLON":          40,
}

var providerWeights = map[string]float64{
	adapters.FinnhubName:      30,
	adapters.PolygonName:      20,
	adapters.AlphaVantageName: 10,
}

// aliases maps well-known company names to their primary listing.
var aliases = map[string]string{
	"apple":      "AAPL",
	"microsoft":  "MSFT",
	"google":     "GOOGL",
	"alphabet":   "GOOGL",
	"amazon":     "AMZN",
	"tesla":      "TSLA",
	"meta":       "META",
	"facebook":   "META",
	"nvidia":     "NVDA",
	"netflix":    "NFLX",
	"berkshire":  "BRK.B",
	"intel":      "INTC",
	"amd":        "AMD",
	"walmart":    "WMT",
	"disney":     "DIS",
	"coca cola":  "KO",
	"coca-cola":  "KO",
	"jpmorgan":   "JPM",
	"visa":       "V",
	"mastercard": "MA",
	"boeing":     "BA",
	"oracle":     "ORCL",
	"salesforce": "CRM",
	"paypal":     "PYPL",
	"adobe":      "ADBE",
}

var leveragedWords = regexp.MustCompile(`(?i)\b(leveraged|inverse|ultra|ultrapro|ultrashort|bear|bull|short|2x|3x|-1x|-2x|-3x)\b`)

// query is the per-request view the rules score against.
type query struct {
	raw    string
	upper  string
	lower  string
	word   *regexp.Regexp
	ticker bool
	// listed is set when some candidate's symbol equals the query.
	listed bool
}

func newQuery(q string) query {
	q = strings.TrimSpace(q)
	return query{
		raw:    q,
		upper:  strings.ToUpper(q),
		lower:  strings.ToLower(q),
		word:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(q) + `\b`),
		ticker: IsTickerShaped(q),
	}
}

type rule func(q query, c adapters.SearchCandidate) float64

// rules are summed to produce a candidate's score.
var rules = []rule{
	symbolMatch,
	descriptionMatch,
	exchangePreference,
	providerPreference,
	aliasBoost,
	typePreference,
	longNamePenalty,
	leveragedPenalty,
}

func score(q query, c adapters.SearchCandidate) float64 {
	var total float64
	for _, r := range rules {
		total += r(q, c)
	}
	return total
}

func symbolMatch(q query, c adapters.SearchCandidate) float64 {
	switch {
	case c.Symbol == q.upper:
		return SymbolExact
	case baseTicker(c.Symbol) == q.upper:
		return SymbolBaseExact
	case strings.HasPrefix(c.Symbol, q.upper):
		return SymbolPrefix
	case strings.Contains(c.Symbol, q.upper):
		return SymbolContains
	}
	return 0
}

func descriptionMatch(q query, c adapters.SearchCandidate) float64 {
	desc := strings.ToLower(c.Description)
	word := q.word.MatchString(c.Description)
	switch {
	case desc == q.lower || companyKey(c) == strings.Join(nameTokens(q.raw), " "):
		return DescExact + DescWordBonus
	case strings.HasPrefix(desc, q.lower):
		if word {
			return DescPrefix + DescWordBonus
		}
		return DescPrefix
	case word:
		return DescWordBonus
	case strings.Contains(desc, q.lower):
		return DescSubstringPenalty
	}
	return 0
}

func exchangePreference(_ query, c adapters.SearchCandidate) float64 {
	ex := strings.ToUpper(c.Exchange)
	if ex == "" && !strings.Contains(c.Symbol, ".") {
		ex = "US"
	}
	if w, ok := exchangeWeights[ex]; ok {
		return w
	}
	return DefaultExchangeFit
}

func providerPreference(_ query, c adapters.SearchCandidate) float64 {
	return providerWeights[c.Provider]
}

func aliasBoost(q query, c adapters.SearchCandidate) float64 {
	var best float64
	for alias, symbol := range aliases {
		if c.Symbol != symbol {
			continue
		}
		var w float64
		switch {
		case q.lower == alias:
			w = AliasExact
		case strings.HasPrefix(q.lower, alias+" "):
			w = AliasPrefix
		case len(q.lower) >= minAliasQueryLen && strings.HasPrefix(alias, q.lower) && !(q.ticker && q.listed):
			w = QueryPrefixOfAlias
		}
		if w > best {
			best = w
		}
	}
	return best
}

func typePreference(_ query, c adapters.SearchCandidate) float64 {
	t := strings.ToLower(c.Type)
	switch {
	case strings.Contains(t, "common stock"):
		return TypeCommonStock
	case t == "cs" || strings.Contains(t, "stock") || strings.Contains(t, "equity"):
		return TypeStock
	case strings.Contains(t, "adr"):
		return TypeADR
	}
	return 0
}

func longNamePenalty(_ query, c adapters.SearchCandidate) float64 {
	words := len(strings.Fields(c.Description))
	if words <= LongNameWordLimit {
		return 0
	}
	return float64(words-LongNameWordLimit) * LongNamePenalty
}

func leveragedPenalty(_ query, c adapters.SearchCandidate) float64 {
	if leveragedWords.MatchString(c.Type) || leveragedWords.MatchString(c.Description) {
		return LeveragedPenalty
	}
	return 0
}
