package adapters

import (
	"sync"
	"time"

	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// Default candle TTLs. Intraday bars move quickly; daily and weekly bars are
// stable within a session.
const (
	TTL24H   = 30 * time.Second
	TTL1W    = time.Minute
	TTL1M    = 2 * time.Minute
	TTLDaily = 5 * time.Minute
	TTL5Y    = 10 * time.Minute
)

// DefaultCandleTTLs maps every range to its cache lifetime.
func DefaultCandleTTLs() map[Range]time.Duration {
	return map[Range]time.Duration{
		Range24H: TTL24H,
		Range1W:  TTL1W,
		Range1M:  TTL1M,
		Range3M:  TTLDaily,
		Range6M:  TTLDaily,
		Range1Y:  TTLDaily,
		Range5Y:  TTL5Y,
	}
}

// CachedCandles is the payload stored per (symbol, range).
type CachedCandles struct {
	Series     *CandleSeries
	Provider   string
	Resolution Resolution
}

type candleEntry struct {
	expires time.Time
	payload CachedCandles
}

// CandleCache is a process-wide expiring map. Expired entries are only ever
// replaced by the next Put; nothing is purged in the background.
type CandleCache struct {
	mu      sync.RWMutex
	entries map[string]candleEntry
	ttls    map[Range]time.Duration
	metrics *observ.Registry
	now     func() time.Time
}

// NewCandleCache creates a cache. ttls overrides entries of
// DefaultCandleTTLs; metrics may be nil.
func NewCandleCache(ttls map[Range]time.Duration, metrics *observ.Registry) *CandleCache {
	merged := DefaultCandleTTLs()
	for r, d := range ttls {
		if d > 0 {
			merged[r] = d
		}
	}
	return &CandleCache{
		entries: make(map[string]candleEntry),
		ttls:    merged,
		metrics: metrics,
		now:     time.Now,
	}
}

func cacheKey(symbol string, r Range) string {
	return symbol + "|" + string(r)
}

// TTL returns the lifetime used for a range.
func (c *CandleCache) TTL(r Range) time.Duration {
	if d, ok := c.ttls[r]; ok {
		return d
	}
	return TTL1M
}

// Get returns the live entry for (symbol, range).
func (c *CandleCache) Get(symbol string, r Range) (CachedCandles, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(symbol, r)]
	c.mu.RUnlock()

	if !ok || !c.now().Before(entry.expires) {
		c.count("candle_cache_miss_total", r)
		return CachedCandles{}, false
	}
	c.count("candle_cache_hit_total", r)
	return entry.payload, true
}

// Put stores payload for ttl, overwriting whatever was there.
func (c *CandleCache) Put(symbol string, r Range, payload CachedCandles, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTL(r)
	}
	c.mu.Lock()
	c.entries[cacheKey(symbol, r)] = candleEntry{expires: c.now().Add(ttl), payload: payload}
	size := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IncCounter("candle_cache_set_total", map[string]string{"range": string(r)})
		c.metrics.SetGauge("candle_cache_size", float64(size), nil)
	}
}

// Len is the number of entries, expired ones included.
func (c *CandleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CandleCache) count(name string, r Range) {
	if c.metrics != nil {
		c.metrics.IncCounter(name, map[string]string{"range": string(r)})
	}
}
