package adapters

import (
	"sort"
	"sync"
	"time"

	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// ProviderStatus is the health state of an upstream provider. It is reported
// on the health route and never used to skip a provider.
type ProviderStatus string

const (
	ProviderStatusHealthy  ProviderStatus = "healthy"
	ProviderStatusDegraded ProviderStatus = "degraded"
	ProviderStatusFailed   ProviderStatus = "failed"
)

// Health thresholds
const (
	degradedErrorRate    = 0.01
	failedErrorRate      = 0.10
	maxConsecutiveErrors = 5
	recoveryWindow       = 5 * time.Minute
	latencyAlpha         = 0.1
)

// ProviderHealth is a point-in-time view of one provider.
type ProviderHealth struct {
	Provider          string         `json:"provider"`
	Status            ProviderStatus `json:"status"`
	Successes         int64          `json:"successes"`
	Errors            int64          `json:"errors"`
	ErrorRate         float64        `json:"errorRate"`
	ConsecutiveErrors int            `json:"consecutiveErrors"`
	LatencyEWMAMs     float64        `json:"latencyEwmaMs"`
	LastSuccess       *time.Time     `json:"lastSuccess,omitempty"`
	LastError         *time.Time     `json:"lastError,omitempty"`
}

type providerHealth struct {
	status            ProviderStatus
	successes         int64
	errors            int64
	consecutiveErrors int
	latencyMs         float64
	lastSuccess       time.Time
	lastError         time.Time
}

// HealthTracker decorates an AttemptRecorder and derives per-provider health
// from every completed attempt. Skipped providers are not counted.
type HealthTracker struct {
	next    AttemptRecorder
	metrics *observ.Registry
	logger  *observ.Logger
	now     func() time.Time

	mu        sync.Mutex
	providers map[string]*providerHealth
}

// NewHealthTracker wraps next. metrics and logger may be nil.
func NewHealthTracker(next AttemptRecorder, metrics *observ.Registry, logger *observ.Logger) *HealthTracker {
	if logger == nil {
		logger = observ.NewSilentLogger()
	}
	return &HealthTracker{
		next:      next,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		providers: make(map[string]*providerHealth),
	}
}

// Begin forwards to the wrapped recorder and updates health when the attempt
// completes.
func (h *HealthTracker) Begin(requestID, route, provider string) observ.CompleteFunc {
	complete := h.next.Begin(requestID, route, provider)
	return func(status observ.AttemptStatus, err error) observ.ProviderAttempt {
		a := complete(status, err)
		h.observe(a)
		return a
	}
}

func (h *HealthTracker) RecordSkipped(requestID, route, provider, reason string) observ.ProviderAttempt {
	return h.next.RecordSkipped(requestID, route, provider, reason)
}

func (h *HealthTracker) observe(a observ.ProviderAttempt) {
	if a.Status == observ.StatusSkipped {
		return
	}
	now := h.now()

	h.mu.Lock()
	ph, ok := h.providers[a.Provider]
	if !ok {
		ph = &providerHealth{status: ProviderStatusHealthy}
		h.providers[a.Provider] = ph
	}
	oldStatus := ph.status
	switch a.Status {
	case observ.StatusOK:
		ph.successes++
		ph.consecutiveErrors = 0
		ph.lastSuccess = now
		ph.updateLatency(float64(a.LatencyMs))
		if ph.status != ProviderStatusHealthy && now.Sub(ph.lastError) >= recoveryWindow {
			ph.status = ProviderStatusHealthy
		}
	case observ.StatusError:
		ph.errors++
		ph.consecutiveErrors++
		ph.lastError = now
		ph.updateStatus()
	}
	newStatus := ph.status
	consecutive := ph.consecutiveErrors
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SetGauge("provider_status", statusToFloat(newStatus), map[string]string{"provider": a.Provider})
	}
	if oldStatus == newStatus {
		return
	}
	if h.metrics != nil {
		h.metrics.IncCounter("provider_status_change_total", map[string]string{
			"provider": a.Provider,
			"from":     string(oldStatus),
			"to":       string(newStatus),
		})
	}
	h.logger.Warn().
		Str("provider", a.Provider).
		Str("from", string(oldStatus)).
		Str("to", string(newStatus)).
		Int("consecutive_errors", consecutive).
		Msg("provider status changed")
}

// updateStatus escalates on error patterns; recovery only happens on success.
func (ph *providerHealth) updateStatus() {
	if ph.consecutiveErrors >= maxConsecutiveErrors {
		ph.status = ProviderStatusFailed
		return
	}
	rate := ph.errorRate()
	if rate >= failedErrorRate {
		ph.status = ProviderStatusFailed
	} else if rate >= degradedErrorRate && ph.status == ProviderStatusHealthy {
		ph.status = ProviderStatusDegraded
	}
}

func (ph *providerHealth) errorRate() float64 {
	total := ph.successes + ph.errors
	if total == 0 {
		return 0
	}
	return float64(ph.errors) / float64(total)
}

// updateLatency keeps an exponential moving average.
func (ph *providerHealth) updateLatency(ms float64) {
	if ph.latencyMs == 0 {
		ph.latencyMs = ms
		return
	}
	ph.latencyMs = ph.latencyMs*(1-latencyAlpha) + ms*latencyAlpha
}

func statusToFloat(s ProviderStatus) float64 {
	switch s {
	case ProviderStatusHealthy:
		return 1.0
	case ProviderStatusDegraded:
		return 0.5
	case ProviderStatusFailed:
		return 0.0
	default:
		return -1.0
	}
}

// Status returns the provider's current status. Providers never called are
// healthy.
func (h *HealthTracker) Status(provider string) ProviderStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ph, ok := h.providers[provider]; ok {
		return ph.status
	}
	return ProviderStatusHealthy
}

// Snapshot returns every provider seen so far, sorted by name.
func (h *HealthTracker) Snapshot() []ProviderHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]ProviderHealth, 0, len(h.providers))
	for name, ph := range h.providers {
		v := ProviderHealth{
			Provider:          name,
			Status:            ph.status,
			Successes:         ph.successes,
			Errors:            ph.errors,
			ErrorRate:         ph.errorRate(),
			ConsecutiveErrors: ph.consecutiveErrors,
			LatencyEWMAMs:     ph.latencyMs,
		}
		if !ph.lastSuccess.IsZero() {
			t := ph.lastSuccess.UTC()
			v.LastSuccess = &t
		}
		if !ph.lastError.IsZero() {
			t := ph.lastError.UTC()
			v.LastError = &t
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
