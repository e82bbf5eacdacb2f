package observ

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every read.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func TestRecorder_BeginComplete(t *testing.T) {
	metrics := NewRegistry()
	r := NewRecorder(10, metrics)
	clock := &fakeClock{t: time.Unix(1000, 0), step: 25 * time.Millisecond}
	r.now = clock.now

	complete := r.Begin("req-1", "quote", "finnhub")
	a := complete(StatusError, errors.New("HTTP 500:   upstream\n exploded token=abc123"))

	assert.Equal(t, "finnhub", a.Provider)
	assert.Equal(t, StatusError, a.Status)
	assert.Equal(t, int64(25), a.LatencyMs)
	assert.Equal(t, "HTTP 500: upstream exploded token=REDACTED", a.Error)

	// second completion is a no-op
	again := complete(StatusOK, nil)
	assert.Equal(t, a, again)

	recs := r.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "req-1", recs[0].RequestID)
	assert.Equal(t, "quote", recs[0].Route)
	assert.Equal(t, int64(1), metrics.Counter("provider_calls_total", map[string]string{
		"route": "quote", "provider": "finnhub", "status": "error",
	}))
}

func TestRecorder_RecordSkipped(t *testing.T) {
	metrics := NewRegistry()
	r := NewRecorder(10, metrics)

	a := r.RecordSkipped("req-1", "candles", "polygon", "no API key configured")
	assert.Equal(t, StatusSkipped, a.Status)
	assert.Zero(t, a.LatencyMs)
	assert.Equal(t, "no API key configured", a.Error)
	assert.Len(t, r.Records(), 1)
	assert.Equal(t, int64(1), metrics.CounterTotal("provider_calls_total"))
}

func TestRecorder_EvictsOldestFirst(t *testing.T) {
	r := NewRecorder(3, nil)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		r.RecordSkipped(id, "search", "finnhub", "x")
	}

	recs := r.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "c", recs[0].RequestID)
	assert.Equal(t, "e", recs[2].RequestID)
	assert.Equal(t, 3, r.Capacity())
}

func TestRecorder_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewRecorder(0, nil).Capacity())
}

func TestRecorder_ConcurrentAppends(t *testing.T) {
	r := NewRecorder(1000, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.Begin("r", "search", "finnhub")(StatusOK, nil)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, r.Records(), 500)
}

func TestRecorder_Snapshot(t *testing.T) {
	r := NewRecorder(100, nil)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	r.now = clock.now

	// 20 finnhub quote calls with latencies 10..200ms, the last one failing
	for i := 1; i <= 20; i++ {
		clock.step = time.Duration(i*10) * time.Millisecond
		complete := r.Begin("q", "quote", "finnhub")
		if i == 20 {
			complete(StatusError, errors.New("HTTP 502"))
		} else {
			complete(StatusOK, nil)
		}
	}
	clock.step = 0
	r.RecordSkipped("c", "candles", "alphavantage", "no API key configured")

	snap := r.Snapshot(5)
	assert.Equal(t, 100, snap.Capacity)
	assert.Equal(t, 21, snap.Size)
	require.Len(t, snap.Recent, 5)
	assert.Equal(t, "alphavantage", snap.Recent[0].Provider, "newest first")
	require.Len(t, snap.RecentErrors, 1)
	assert.Equal(t, "HTTP 502", snap.RecentErrors[0].Error)

	require.Len(t, snap.Metrics, 2)
	av, fh := snap.Metrics[0], snap.Metrics[1]
	assert.Equal(t, "candles", av.Route)
	assert.Equal(t, 1, av.Skipped)
	assert.Zero(t, av.SuccessRate)

	assert.Equal(t, "quote", fh.Route)
	assert.Equal(t, 20, fh.Calls)
	assert.Equal(t, 19, fh.OK)
	assert.Equal(t, 1, fh.Errors)
	assert.InDelta(t, 105, fh.AvgLatencyMs, 1e-9)
	assert.Equal(t, float64(190), fh.P95LatencyMs)
	assert.InDelta(t, 0.95, fh.SuccessRate, 1e-9)
	assert.Equal(t, "HTTP 502", fh.LastError)
	require.NotNil(t, fh.LastErrorAt)
}

func TestRecorder_SnapshotEmpty(t *testing.T) {
	snap := NewRecorder(10, nil).Snapshot(50)
	assert.NotNil(t, snap.Recent)
	assert.NotNil(t, snap.Metrics)
	assert.NotNil(t, snap.RecentErrors)
	assert.Zero(t, snap.Size)
}

func TestSanitizeError(t *testing.T) {
	assert.Equal(t, "a apikey=REDACTED&x=1", SanitizeError("a apikey=SECRET&x=1"))
	assert.Equal(t, "API_KEY=REDACTED", SanitizeError("API_KEY=abc"))
	assert.Equal(t, "access_key=REDACTED b", SanitizeError("access_key=zzz\t\n b"))

	long := SanitizeError(strings.Repeat("é", 500))
	assert.Equal(t, MaxErrorLen, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "..."))
}
