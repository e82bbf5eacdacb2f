package adapters

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygon_QuoteFallsBackToDayClose(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testKey, r.URL.Query().Get("apiKey"))
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/snapshot/"):
			writeJSONBody(w, map[string]any{
				"status": "OK",
				"ticker": map[string]any{
					"ticker":           "MSFT",
					"todaysChange":     2.0,
					"todaysChangePerc": 0.5,
					"updated":          int64(1700000000) * 1e9,
					"day":              map[string]any{"o": 400, "h": 405, "l": 399, "c": 402},
					"prevDay":          map[string]any{"c": 400},
					"lastTrade":        map[string]any{"p": 0},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/v3/reference/tickers/"):
			writeJSONBody(w, map[string]any{
				"status": "OK",
				"results": map[string]any{
					"ticker": "MSFT", "name": "Microsoft Corp", "primary_exchange": "XNAS",
					"currency_name": "usd", "locale": "us", "market_cap": 3.1e12,
					"homepage_url": "https://www.microsoft.com", "list_date": "1986-03-13",
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	res, err := NewPolygonAdapter(cfg).Quote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 402.0, res.Quote.C)
	assert.Equal(t, 400.0, res.Quote.PC)
	assert.Equal(t, int64(1700000000), res.Quote.T)
	assert.Equal(t, "Microsoft Corp", res.Profile.Name)
	assert.Equal(t, "USD", res.Profile.Currency)
	assert.Equal(t, "US", res.Profile.Country)
	assert.InDelta(t, 3.1e6, res.Profile.MarketCapitalization, 1e-3)
}

func TestPolygon_ErrorStatus(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, map[string]any{"status": "ERROR", "error": "Unknown API Key"})
	})

	_, err := NewPolygonAdapter(cfg).Quote(context.Background(), "MSFT")
	require.Error(t, err)
	assert.Equal(t, KindSemantic, KindOf(err))
	assert.Contains(t, err.Error(), "Unknown API Key")
}

func TestPolygon_Candles(t *testing.T) {
	now := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	req := NewCandleRequest("AAPL", Range3M, now)
	day1 := now.AddDate(0, 0, -2).Truncate(24 * time.Hour)
	day2 := day1.Add(24 * time.Hour)

	var path string
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "asc", r.URL.Query().Get("sort"))
		writeJSONBody(w, map[string]any{
			"status":       "OK",
			"resultsCount": 2,
			"results": []map[string]any{
				{"t": day2.UnixMilli(), "o": 2, "h": 2, "l": 2, "c": 2, "v": 200},
				{"t": day1.UnixMilli(), "o": 1, "h": 1, "l": 1, "c": 1, "v": 100},
			},
		})
	})

	s, err := NewPolygonAdapter(cfg).Candles(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "/v2/aggs/ticker/AAPL/range/1/day/"), path)
	assert.Equal(t, []int64{day1.Unix(), day2.Unix()}, s.T)
	assert.Equal(t, []float64{100, 200}, s.V)
}

func TestPolygon_CandlesEmpty(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, map[string]any{"status": "OK", "resultsCount": 0})
	})

	_, err := NewPolygonAdapter(cfg).Candles(context.Background(), NewCandleRequest("AAPL", Range24H, time.Now()))
	require.Error(t, err)
	assert.Equal(t, KindSemantic, KindOf(err))
}

func TestPolygon_Search(t *testing.T) {
	cfg := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/reference/tickers", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("search"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeJSONBody(w, map[string]any{
			"status": "OK",
			"results": []map[string]any{
				{"ticker": "AAPL", "name": "Apple Inc.", "primary_exchange": "XNAS", "type": "CS", "active": true},
				{"ticker": "APLE", "name": "Apple Hospitality REIT, Inc.", "primary_exchange": "XNYS", "type": "CS", "active": true},
			},
		})
	})

	got, err := NewPolygonAdapter(cfg).Search(context.Background(), "apple", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Common Stock", got[0].Type)
	assert.Equal(t, "XNAS", got[0].Exchange)
	assert.Equal(t, PolygonName, got[1].Provider)
}
