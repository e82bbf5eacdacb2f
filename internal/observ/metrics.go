package observ

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is an in-process store of counters, gauges and histograms.
type Registry struct {
	mu       sync.Mutex
	started  time.Time
	counters map[string]map[string]int64   // name -> labelsKey -> count
	gauges   map[string]map[string]float64 // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

// histogram samples kept per label set
const maxHistSamples = 2048

func NewRegistry() *Registry {
	return &Registry{
		started:  time.Now(),
		counters: map[string]map[string]int64{},
		gauges:   map[string]map[string]float64{},
		hist:     map[string]map[string][]float64{},
	}
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func (r *Registry) IncCounter(name string, labels map[string]string) {
	r.IncCounterBy(name, labels, 1)
}

func (r *Registry) IncCounterBy(name string, labels map[string]string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.counters[name]
	if !ok {
		m = map[string]int64{}
		r.counters[name] = m
	}
	m[canonLabels(labels)] += value
}

func (r *Registry) SetGauge(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.gauges[name]
	if !ok {
		m = map[string]float64{}
		r.gauges[name] = m
	}
	m[canonLabels(labels)] = value
}

// Observe records a histogram sample. Only the newest maxHistSamples are kept.
func (r *Registry) Observe(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.hist[name]
	if !ok {
		m = map[string][]float64{}
		r.hist[name] = m
	}
	k := canonLabels(labels)
	s := append(m[k], value)
	if len(s) > maxHistSamples {
		s = s[len(s)-maxHistSamples:]
	}
	m[k] = s
}

// RecordDuration records a duration metric in milliseconds
func (r *Registry) RecordDuration(name string, d time.Duration, labels map[string]string) {
	r.Observe(name+"_ms", float64(d.Milliseconds()), labels)
}

// Counter returns the current value of a counter for a label set.
func (r *Registry) Counter(name string, labels map[string]string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name][canonLabels(labels)]
}

// CounterTotal sums a counter over every label set.
func (r *Registry) CounterTotal(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, v := range r.counters[name] {
		total += v
	}
	return total
}

type histSummary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	P95   float64 `json:"p95"`
	Max   float64 `json:"max"`
}

func summarize(samples []float64) histSummary {
	if len(samples) == 0 {
		return histSummary{}
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return histSummary{
		Count: len(sorted),
		Avg:   sum / float64(len(sorted)),
		P95:   NearestRank(sorted, 0.95),
		Max:   sorted[len(sorted)-1],
	}
}

// NearestRank returns the p-th percentile of an ascending slice using the
// nearest-rank method.
func NearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(n) - 1e-9))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// Handler is a JSON dump for quick checks (not Prometheus format on purpose).
func (r *Registry) Handler() http.Handler {
	type dump struct {
		Uptime   string                            `json:"uptime"`
		Counters map[string]map[string]int64       `json:"counters"`
		Gauges   map[string]map[string]float64     `json:"gauges"`
		Hist     map[string]map[string]histSummary `json:"histograms"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		r.mu.Lock()
		d := dump{
			Uptime:   time.Since(r.started).Round(time.Second).String(),
			Counters: map[string]map[string]int64{},
			Gauges:   map[string]map[string]float64{},
			Hist:     map[string]map[string]histSummary{},
		}
		for name, m := range r.counters {
			d.Counters[name] = map[string]int64{}
			for k, v := range m {
				d.Counters[name][k] = v
			}
		}
		for name, m := range r.gauges {
			d.Gauges[name] = map[string]float64{}
			for k, v := range m {
				d.Gauges[name][k] = v
			}
		}
		for name, m := range r.hist {
			d.Hist[name] = map[string]histSummary{}
			for k, v := range m {
				d.Hist[name][k] = summarize(v)
			}
		}
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d)
	})
}
