package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{"", Range1M, false},
		{"24H", Range24H, false},
		{"24h", Range24H, false},
		{"1D", Range24H, false},
		{"3h", Range24H, false},
		{"1w", Range1W, false},
		{"ytd", Range1Y, false},
		{" 5Y ", Range5Y, false},
		{"10Y", "", true},
		{"1H", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "want one of 24H, 1W, 1M, 3M, 6M, 1Y, 5Y")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeResolution(t *testing.T) {
	want := map[Range]Resolution{
		Range24H: Res5Min,
		Range1W:  Res30Min,
		Range1M:  Res60Min,
		Range3M:  ResDaily,
		Range6M:  ResDaily,
		Range1Y:  ResDaily,
		Range5Y:  ResWeekly,
	}
	for _, r := range AllRanges {
		assert.Equal(t, want[r], r.Resolution(), r)
	}
	assert.True(t, Res60Min.IsIntraday())
	assert.False(t, ResDaily.IsIntraday())
}

func TestRangeWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	from, to := Range24H.Window(now)
	assert.Equal(t, now, to)
	assert.Equal(t, now.Add(-24*time.Hour), from)

	from, _ = Range3M.Window(now)
	assert.Equal(t, now.AddDate(0, 0, -90), from)

	from, _ = Range5Y.Window(now)
	assert.Equal(t, time.Date(2019, 3, 15, 12, 0, 0, 0, time.UTC), from)

	req := NewCandleRequest("AAPL", Range1W, now)
	assert.Equal(t, Res30Min, req.Resolution)
	assert.Equal(t, now.AddDate(0, 0, -7), req.From)
}
