package adapters

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSeries(t *testing.T) {
	from := time.Unix(1000, 0)
	to := time.Unix(2000, 0)

	bars := []Bar{
		{T: 1500, O: 1, H: 1, L: 1, C: 1, V: 1},
		{T: 999, O: 9, H: 9, L: 9, C: 9, V: 9},            // before window
		{T: 2001, O: 9, H: 9, L: 9, C: 9, V: 9},           // after window
		{T: 1200, O: math.NaN(), H: 1, L: 1, C: 1, V: 1},  // non-finite
		{T: 1100, O: 2, H: 2, L: 2, C: 2, V: math.Inf(1)}, // non-finite volume
		{T: 1000, O: 3, H: 3, L: 3, C: 3, V: 3},           // inclusive lower bound
		{T: 2000, O: 4, H: 4, L: 4, C: 4, V: 4},           // inclusive upper bound
		{T: 1500, O: 5, H: 5, L: 5, C: 5, V: 5},           // duplicate, wins
	}

	s, err := BuildSeries("test", "AAPL", bars, from, to)
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 1500, 2000}, s.T)
	assert.Equal(t, []float64{3, 5, 4}, s.C)
	assert.Equal(t, 3, s.Len())
	for _, col := range [][]float64{s.O, s.H, s.L, s.C, s.V} {
		assert.Len(t, col, len(s.T))
	}
}

func TestBuildSeries_Empty(t *testing.T) {
	_, err := BuildSeries("test", "AAPL", []Bar{{T: 5, O: 1, H: 1, L: 1, C: 1}}, time.Unix(10, 0), time.Unix(20, 0))
	require.Error(t, err)
	assert.Equal(t, KindEmpty, KindOf(err))

	_, err = BuildSeries("test", "AAPL", nil, time.Unix(10, 0), time.Unix(20, 0))
	assert.Equal(t, KindEmpty, KindOf(err))
}
