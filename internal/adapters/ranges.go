package adapters

import (
	"fmt"
	"strings"
	"time"
)

// Range is a requested chart window.
type Range string

const (
	Range24H Range = "24H"
	Range1W  Range = "1W"
	Range1M  Range = "1M"
	Range3M  Range = "3M"
	Range6M  Range = "6M"
	Range1Y  Range = "1Y"
	Range5Y  Range = "5Y"
)

// Resolution is the bar size. Values follow the common charting vocabulary.
type Resolution string

const (
	Res5Min   Resolution = "5"
	Res30Min  Resolution = "30"
	Res60Min  Resolution = "60"
	ResDaily  Resolution = "D"
	ResWeekly Resolution = "W"
)

// DefaultRange is used when a candle request names no range.
const DefaultRange = Range1M

var rangeAliases = map[string]Range{
	"24H": Range24H,
	"1D":  Range24H,
	"3H":  Range24H,
	"1W":  Range1W,
	"1M":  Range1M,
	"3M":  Range3M,
	"6M":  Range6M,
	"1Y":  Range1Y,
	"YTD": Range1Y,
	"5Y":  Range5Y,
}

// AllRanges lists canonical ranges shortest first.
var AllRanges = []Range{Range24H, Range1W, Range1M, Range3M, Range6M, Range1Y, Range5Y}

// ParseRange resolves a canonical range or alias, case-insensitively.
// An empty string yields DefaultRange.
func ParseRange(s string) (Range, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultRange, nil
	}
	if r, ok := rangeAliases[s]; ok {
		return r, nil
	}
	names := make([]string, len(AllRanges))
	for i, r := range AllRanges {
		names[i] = string(r)
	}
	return "", fmt.Errorf("unsupported range %q (want one of %s)", s, strings.Join(names, ", "))
}

// Resolution returns the bar size used for the range.
func (r Range) Resolution() Resolution {
	switch r {
	case Range24H:
		return Res5Min
	case Range1W:
		return Res30Min
	case Range1M:
		return Res60Min
	case Range5Y:
		return ResWeekly
	default:
		return ResDaily
	}
}

// Window returns the closed [from, to] interval ending at now.
func (r Range) Window(now time.Time) (from, to time.Time) {
	to = now
	switch r {
	case Range24H:
		from = now.Add(-24 * time.Hour)
	case Range1W:
		from = now.AddDate(0, 0, -7)
	case Range1M:
		from = now.AddDate(0, 0, -30)
	case Range3M:
		from = now.AddDate(0, 0, -90)
	case Range6M:
		from = now.AddDate(0, 0, -180)
	case Range1Y:
		from = now.AddDate(0, 0, -365)
	case Range5Y:
		from = now.AddDate(-5, 0, 0)
	default:
		from = now.AddDate(0, 0, -30)
	}
	return from, to
}

// IsIntraday reports whether the resolution is finer than a day.
func (r Resolution) IsIntraday() bool {
	return r == Res5Min || r == Res30Min || r == Res60Min
}

// CandleRequest is the normalized input every candle adapter receives.
type CandleRequest struct {
	Symbol     string
	Range      Range
	Resolution Resolution
	From       time.Time
	To         time.Time
}

// NewCandleRequest derives window and resolution for range r at time now.
func NewCandleRequest(symbol string, r Range, now time.Time) CandleRequest {
	from, to := r.Window(now)
	return CandleRequest{
		Symbol:     symbol,
		Range:      r,
		Resolution: r.Resolution(),
		From:       from,
		To:         to,
	}
}
