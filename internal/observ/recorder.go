package observ

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// AttemptStatus is the outcome of a single upstream provider call.
type AttemptStatus string

const (
	StatusOK      AttemptStatus = "ok"
	StatusError   AttemptStatus = "error"
	StatusSkipped AttemptStatus = "skipped"
)

const (
	// DefaultCapacity is the size of the process-wide attempt log.
	DefaultCapacity = 1000
	// MaxErrorLen bounds every error string stored or returned.
	MaxErrorLen = 300
)

// ProviderAttempt is the per-call record returned inline in response metadata.
type ProviderAttempt struct {
	Provider  string        `json:"provider"`
	Status    AttemptStatus `json:"status"`
	LatencyMs int64         `json:"latencyMs"`
	Error     string        `json:"error,omitempty"`
}

// CallRecord is a ProviderAttempt as kept in the shared log.
type CallRecord struct {
	ProviderAttempt
	RequestID string    `json:"requestId"`
	Route     string    `json:"route"`
	At        time.Time `json:"at"`
}

// Recorder keeps the most recent provider calls in a fixed-size ring.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	buf     []CallRecord
	next    int
	size    int
	metrics *Registry
	now     func() time.Time
}

// NewRecorder creates a recorder holding up to capacity calls. metrics may be nil.
func NewRecorder(capacity int, metrics *Registry) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		buf:     make([]CallRecord, capacity),
		metrics: metrics,
		now:     time.Now,
	}
}

// CompleteFunc finishes an attempt started with Begin.
type CompleteFunc func(status AttemptStatus, err error) ProviderAttempt

// Begin starts timing a provider call. The returned function must be called
// exactly once when the call finishes.
func (r *Recorder) Begin(requestID, route, provider string) CompleteFunc {
	start := r.now()
	var once sync.Once
	var attempt ProviderAttempt
	return func(status AttemptStatus, err error) ProviderAttempt {
		once.Do(func() {
			latency := r.now().Sub(start).Milliseconds()
			if latency < 0 {
				latency = 0
			}
			attempt = ProviderAttempt{
				Provider:  provider,
				Status:    status,
				LatencyMs: latency,
			}
			if err != nil {
				attempt.Error = SanitizeError(err.Error())
			}
			r.append(requestID, route, attempt)
		})
		return attempt
	}
}

// RecordSkipped logs a provider that was never called, e.g. for a missing key.
func (r *Recorder) RecordSkipped(requestID, route, provider, reason string) ProviderAttempt {
	attempt := ProviderAttempt{
		Provider: provider,
		Status:   StatusSkipped,
		Error:    SanitizeError(reason),
	}
	r.append(requestID, route, attempt)
	return attempt
}

func (r *Recorder) append(requestID, route string, a ProviderAttempt) {
	rec := CallRecord{ProviderAttempt: a, RequestID: requestID, Route: route, At: r.now().UTC()}

	r.mu.Lock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
	r.mu.Unlock()

	if r.metrics != nil {
		labels := map[string]string{"route": route, "provider": a.Provider, "status": string(a.Status)}
		r.metrics.IncCounter("provider_calls_total", labels)
		if a.Status != StatusSkipped {
			r.metrics.Observe("provider_latency_ms", float64(a.LatencyMs), map[string]string{
				"route": route, "provider": a.Provider,
			})
		}
	}
}

// Records returns the log oldest first.
func (r *Recorder) Records() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallRecord, 0, r.size)
	start := (r.next - r.size + len(r.buf)) % len(r.buf)
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Capacity is the maximum number of records kept.
func (r *Recorder) Capacity() int { return len(r.buf) }

// RouteMetrics aggregates the log for one (route, provider) pair.
type RouteMetrics struct {
	Route        string     `json:"route"`
	Provider     string     `json:"provider"`
	Calls        int        `json:"calls"`
	OK           int        `json:"ok"`
	Errors       int        `json:"errors"`
	Skipped      int        `json:"skipped"`
	AvgLatencyMs float64    `json:"avgLatencyMs"`
	P95LatencyMs float64    `json:"p95LatencyMs"`
	SuccessRate  float64    `json:"successRate"`
	LastError    string     `json:"lastError,omitempty"`
	LastErrorAt  *time.Time `json:"lastErrorAt,omitempty"`
}

// Snapshot is the read-only view served on the observability route.
type Snapshot struct {
	Capacity     int            `json:"capacity"`
	Size         int            `json:"size"`
	Recent       []CallRecord   `json:"recent"`
	Metrics      []RouteMetrics `json:"metrics"`
	RecentErrors []CallRecord   `json:"recentErrors"`
}

// Snapshot aggregates the whole log and returns up to limit recent calls and
// errors, newest first.
func (r *Recorder) Snapshot(limit int) Snapshot {
	records := r.Records()
	if limit <= 0 {
		limit = len(records)
	}

	snap := Snapshot{
		Capacity:     r.Capacity(),
		Size:         len(records),
		Recent:       []CallRecord{},
		Metrics:      []RouteMetrics{},
		RecentErrors: []CallRecord{},
	}

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if len(snap.Recent) < limit {
			snap.Recent = append(snap.Recent, rec)
		}
		if rec.Status == StatusError && len(snap.RecentErrors) < limit {
			snap.RecentErrors = append(snap.RecentErrors, rec)
		}
	}

	type key struct{ route, provider string }
	groups := map[key]*RouteMetrics{}
	latencies := map[key][]float64{}
	for _, rec := range records {
		k := key{rec.Route, rec.Provider}
		m, ok := groups[k]
		if !ok {
			m = &RouteMetrics{Route: rec.Route, Provider: rec.Provider}
			groups[k] = m
		}
		m.Calls++
		switch rec.Status {
		case StatusOK:
			m.OK++
		case StatusError:
			m.Errors++
			at := rec.At
			m.LastError = rec.Error
			m.LastErrorAt = &at
		case StatusSkipped:
			m.Skipped++
		}
		latencies[k] = append(latencies[k], float64(rec.LatencyMs))
	}

	for k, m := range groups {
		l := latencies[k]
		sort.Float64s(l)
		var sum float64
		for _, v := range l {
			sum += v
		}
		m.AvgLatencyMs = sum / float64(len(l))
		m.P95LatencyMs = NearestRank(l, 0.95)
		m.SuccessRate = float64(m.OK) / float64(m.Calls)
		snap.Metrics = append(snap.Metrics, *m)
	}
	sort.Slice(snap.Metrics, func(i, j int) bool {
		if snap.Metrics[i].Route != snap.Metrics[j].Route {
			return snap.Metrics[i].Route < snap.Metrics[j].Route
		}
		return snap.Metrics[i].Provider < snap.Metrics[j].Provider
	})
	return snap
}

var (
	credentialParam = regexp.MustCompile(`(?i)\b(token|apikey|api_key|access_key)=[^&\s"']+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// SanitizeError redacts credentials, collapses whitespace and truncates to
// MaxErrorLen runes.
func SanitizeError(msg string) string {
	msg = credentialParam.ReplaceAllString(msg, "${1}=REDACTED")
	msg = strings.TrimSpace(whitespaceRun.ReplaceAllString(msg, " "))
	runes := []rune(msg)
	if len(runes) > MaxErrorLen {
		msg = string(runes[:MaxErrorLen-3]) + "..."
	}
	return msg
}
