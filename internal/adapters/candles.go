package adapters

import (
	"math"
	"sort"
	"time"
)

var nan = math.NaN()

// CandleSeries holds parallel OHLCV arrays with strictly ascending t
// (epoch seconds). A series is never mutated once built.
type CandleSeries struct {
	T []int64   `json:"t"`
	O []float64 `json:"o"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	C []float64 `json:"c"`
	V []float64 `json:"v"`
}

// Len is the number of rows.
func (s *CandleSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.T)
}

// Bar is one decoded row before normalization.
type Bar struct {
	T int64
	O float64
	H float64
	L float64
	C float64
	V float64
}

func (b Bar) finite() bool {
	return finite(b.O) && finite(b.H) && finite(b.L) && finite(b.C) && finite(b.V)
}

// BuildSeries keeps rows inside [from, to] with every field finite, sorts them
// ascending and drops duplicate timestamps (the last decoded row wins). It
// fails with an empty-result error when nothing survives.
func BuildSeries(provider, symbol string, bars []Bar, from, to time.Time) (*CandleSeries, error) {
	lo, hi := from.Unix(), to.Unix()
	kept := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.T < lo || b.T > hi || !b.finite() {
			continue
		}
		kept = append(kept, b)
	}
	if len(kept) == 0 {
		return nil, NewEmptyError(provider, symbol, "no candles inside requested window")
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].T < kept[j].T })
	deduped := kept[:0]
	for _, b := range kept {
		if n := len(deduped); n > 0 && deduped[n-1].T == b.T {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}

	s := &CandleSeries{
		T: make([]int64, len(deduped)),
		O: make([]float64, len(deduped)),
		H: make([]float64, len(deduped)),
		L: make([]float64, len(deduped)),
		C: make([]float64, len(deduped)),
		V: make([]float64, len(deduped)),
	}
	for i, b := range deduped {
		s.T[i], s.O[i], s.H[i], s.L[i], s.C[i], s.V[i] = b.T, b.O, b.H, b.L, b.C, b.V
	}
	return s, nil
}
