package adapters

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rajchodisetti/market-gateway/internal/observ"
)

// Default key environment variables per provider.
var defaultKeyEnv = map[string]string{
	FinnhubName:      "FINNHUB_API_KEY",
	PolygonName:      "POLYGON_API_KEY",
	AlphaVantageName: "ALPHAVANTAGE_API_KEY",
}

// Default chain orders.
var (
	DefaultSearchChain = []string{FinnhubName, PolygonName, AlphaVantageName}
	DefaultQuoteChain  = []string{FinnhubName, PolygonName}
	DefaultCandleChain = []string{FinnhubName, PolygonName, AlphaVantageName}
)

// Registry holds one adapter per known provider, built from configuration.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

// NewRegistry builds every known provider. Missing keys are not an error: the
// adapter reports Configured() == false and chains record it as skipped.
// An api_key in the file wins over the environment.
func NewRegistry(cfgs map[string]ProviderConfig, logger *observ.Logger) *Registry {
	reg := &Registry{adapters: make(map[string]Adapter)}
	for _, name := range []string{FinnhubName, PolygonName, AlphaVantageName} {
		cfg := resolveKey(name, cfgs[name])
		var a Adapter
		switch name {
		case FinnhubName:
			a = NewFinnhubAdapter(cfg)
		case PolygonName:
			a = NewPolygonAdapter(cfg)
		case AlphaVantageName:
			a = NewAlphaVantageAdapter(cfg)
		}
		reg.Register(a)

		if logger != nil {
			logger.Log("provider_registered", map[string]any{
				"provider":       name,
				"configured":     a.Configured(),
				"api_key_masked": maskAPIKey(cfg.APIKey),
			})
		}
	}
	return reg
}

// Register adds or replaces an adapter under its own name.
func (r *Registry) Register(a Adapter) {
	if r.adapters == nil {
		r.adapters = make(map[string]Adapter)
	}
	if _, exists := r.adapters[a.Name()]; !exists {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

func resolveKey(name string, cfg ProviderConfig) ProviderConfig {
	if strings.TrimSpace(cfg.APIKey) != "" {
		return cfg
	}
	env := cfg.APIKeyEnv
	if env == "" {
		env = defaultKeyEnv[name]
	}
	if env != "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv(env))
	}
	return cfg
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return a, ok
}

// Chain resolves an ordered list of provider names. Unknown names are an
// error so a typo in config fails at startup instead of silently shrinking
// the chain.
func (r *Registry) Chain(names []string) ([]Adapter, error) {
	out := make([]Adapter, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		a, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", n)
		}
		if seen[a.Name()] {
			continue
		}
		seen[a.Name()] = true
		out = append(out, a)
	}
	return out, nil
}

// Configured lists the names of providers holding credentials, in
// registration order.
func (r *Registry) Configured() []string {
	var out []string
	for _, n := range r.order {
		if r.adapters[n].Configured() {
			out = append(out, n)
		}
	}
	return out
}

// Names lists every registered provider.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// BudgetUsage is one provider's daily request usage. Cap 0 means unlimited.
type BudgetUsage struct {
	Provider string    `json:"provider"`
	Used     int       `json:"used"`
	Cap      int       `json:"cap"`
	ResetsAt time.Time `json:"resetsAt"`
}

type budgeted interface {
	BudgetStatus() (used, total int, resetTime time.Time)
}

// Budgets reports daily usage for every registered provider that tracks it,
// in registration order.
func (r *Registry) Budgets() []BudgetUsage {
	out := make([]BudgetUsage, 0, len(r.order))
	for _, n := range r.order {
		b, ok := r.adapters[n].(budgeted)
		if !ok {
			continue
		}
		used, total, reset := b.BudgetStatus()
		out = append(out, BudgetUsage{Provider: n, Used: used, Cap: total, ResetsAt: reset.UTC()})
	}
	return out
}

// maskAPIKey masks sensitive API key for logging
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "***" + key[len(key)-4:]
}
