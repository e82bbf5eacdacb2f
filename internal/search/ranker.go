// Package search ranks and deduplicates symbol-search candidates merged from
// several providers.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
)

// Result limits.
const (
	DefaultLimit = 10
	MaxLimit     = 25
)

// Cutoff thresholds. These are tuned values; the tests pin their behavior.
const (
	SharpLeadMargin  = 600
	SharpBand        = 150
	TickerFloorWidth = 900
	NameFloorWidth   = 600
	minCutoffKeep    = 3
)

// tickerShaped is matched against the query as typed: a lowercase word such
// as "apple" is a name, not a ticker.
var tickerShaped = regexp.MustCompile(`^[A-Z0-9]{1,6}(\.[A-Z0-9]{1,4})?$`)

// Ranked is a candidate with its score and company identity.
type Ranked struct {
	adapters.SearchCandidate
	Score      float64 `json:"score"`
	CompanyKey string  `json:"companyKey"`
}

// ClampLimit bounds a requested result count to [1, MaxLimit]; zero or
// negative means DefaultLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// IsTickerShaped reports whether q looks like a literal ticker.
func IsTickerShaped(q string) bool {
	return tickerShaped.MatchString(strings.TrimSpace(q))
}

// Rank sanitizes, scores, deduplicates and truncates candidates for query.
// It has no side effects and the same input always yields the same output.
func Rank(candidates []adapters.SearchCandidate, q string, limit int) []Ranked {
	limit = ClampLimit(limit)
	if strings.TrimSpace(q) == "" {
		return []Ranked{}
	}
	qq := newQuery(q)

	clean := make([]adapters.SearchCandidate, 0, len(candidates))
	for _, raw := range candidates {
		if c, ok := sanitize(raw); ok {
			clean = append(clean, c)
			if c.Symbol == qq.upper {
				qq.listed = true
			}
		}
	}

	best := map[string]int{}
	var ranked []Ranked
	for _, c := range clean {
		r := Ranked{SearchCandidate: c, Score: score(qq, c), CompanyKey: companyKey(c)}
		if i, seen := best[r.CompanyKey]; seen {
			if r.Score > ranked[i].Score {
				ranked[i] = r
			}
			continue
		}
		best[r.CompanyKey] = len(ranked)
		ranked = append(ranked, r)
	}
	if len(ranked) == 0 {
		return []Ranked{}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	return truncate(cutoff(ranked, qq.raw, limit), limit)
}

// cutoff drops candidates scoring far below the leader.
func cutoff(sorted []Ranked, q string, limit int) []Ranked {
	top := sorted[0].Score
	ticker := IsTickerShaped(q)

	if !ticker && len(sorted) > 1 && top-sorted[1].Score >= SharpLeadMargin {
		return keepAbove(sorted, top-SharpBand)
	}

	width := float64(NameFloorWidth)
	if ticker {
		width = TickerFloorWidth
	}
	kept := keepAbove(sorted, top-width)
	if len(kept) < min(limit, minCutoffKeep) {
		return sorted
	}
	return kept
}

func keepAbove(sorted []Ranked, floor float64) []Ranked {
	out := make([]Ranked, 0, len(sorted))
	for _, r := range sorted {
		if r.Score >= floor {
			out = append(out, r)
		}
	}
	return out
}

// truncate removes repeated symbols and caps to limit.
func truncate(rs []Ranked, limit int) []Ranked {
	out := make([]Ranked, 0, min(len(rs), limit))
	seen := map[string]bool{}
	for _, r := range rs {
		if seen[r.Symbol] {
			continue
		}
		seen[r.Symbol] = true
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Candidates strips ranking fields for the response body.
func Candidates(rs []Ranked) []adapters.SearchCandidate {
	out := make([]adapters.SearchCandidate, len(rs))
	for i, r := range rs {
		out[i] = r.SearchCandidate
	}
	return out
}
