package observ

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestRank(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.95, 0},
		{"single", []float64{7}, 0.95, 7},
		{"twenty", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, 0.95, 19},
		{"ten", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.95, 10},
		{"median", []float64{1, 2, 3, 4}, 0.5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestRank(tt.sorted, tt.p))
		})
	}
}

func TestRegistry_CountersAndHandler(t *testing.T) {
	r := NewRegistry()
	r.IncCounter("requests", map[string]string{"route": "quote", "status": "200"})
	r.IncCounter("requests", map[string]string{"status": "200", "route": "quote"})
	r.IncCounterBy("requests", map[string]string{"route": "search"}, 3)
	r.SetGauge("cache_size", 4, nil)
	r.RecordDuration("latency", 120*time.Millisecond, map[string]string{"route": "quote"})

	assert.Equal(t, int64(2), r.Counter("requests", map[string]string{"route": "quote", "status": "200"}))
	assert.Equal(t, int64(5), r.CounterTotal("requests"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Counters   map[string]map[string]int64   `json:"counters"`
		Gauges     map[string]map[string]float64 `json:"gauges"`
		Histograms map[string]map[string]struct {
			Count int     `json:"count"`
			Max   float64 `json:"max"`
		} `json:"histograms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Counters["requests"]["route=quote,status=200"])
	assert.Equal(t, 4.0, body.Gauges["cache_size"][""])
	assert.Equal(t, 1, body.Histograms["latency_ms"]["route=quote"].Count)
	assert.Equal(t, 120.0, body.Histograms["latency_ms"]["route=quote"].Max)
}

func TestRegistry_HistogramIsBounded(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < maxHistSamples+10; i++ {
		r.Observe("h", float64(i), nil)
	}
	assert.Len(t, r.hist["h"][""], maxHistSamples)
	assert.Equal(t, float64(10), r.hist["h"][""][0])
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithOutput("INFO", &buf)
	l.Log("provider_registered", map[string]any{"provider": "finnhub", "configured": true})
	l.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "provider_registered", line["event"])
	assert.Equal(t, "finnhub", line["provider"])
	assert.Equal(t, true, line["configured"])
	assert.NotContains(t, buf.String(), "hidden")
}
