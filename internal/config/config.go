package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
)

type Server struct {
	Addr                string   `yaml:"addr"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	ShutdownSeconds     int      `yaml:"shutdown_seconds"`
	AllowedOrigins      []string `yaml:"allowed_origins"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// Chains lists provider names in priority order per route.
type Chains struct {
	Search  []string `yaml:"search"`
	Quote   []string `yaml:"quote"`
	Candles []string `yaml:"candles"`
}

type Cache struct {
	// TTLSeconds overrides the default lifetime per range, e.g. {"24H": 15}.
	TTLSeconds map[string]int `yaml:"ttl_seconds"`
}

type Observability struct {
	Capacity int `yaml:"capacity"`
}

type Root struct {
	Server        Server                             `yaml:"server"`
	Logging       Logging                            `yaml:"logging"`
	Providers     map[string]adapters.ProviderConfig `yaml:"providers"`
	Chains        Chains                             `yaml:"chains"`
	Cache         Cache                              `yaml:"cache"`
	Observability Observability                      `yaml:"observability"`
}

// Load reads path and fills defaults. A missing file yields the defaults so
// the gateway can run from environment variables alone.
func Load(path string) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return c, err
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, err
			}
		}
	}
	c.applyEnv()
	c.applyDefaults()
	return c, nil
}

func (c *Root) applyEnv() {
	if v := os.Getenv("GATEWAY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Root) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 60
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 10
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Providers == nil {
		c.Providers = map[string]adapters.ProviderConfig{}
	}

	// Set chain defaults
	if len(c.Chains.Search) == 0 {
		c.Chains.Search = append([]string(nil), adapters.DefaultSearchChain...)
	}
	if len(c.Chains.Quote) == 0 {
		c.Chains.Quote = append([]string(nil), adapters.DefaultQuoteChain...)
	}
	if len(c.Chains.Candles) == 0 {
		c.Chains.Candles = append([]string(nil), adapters.DefaultCandleChain...)
	}

	if c.Observability.Capacity <= 0 {
		c.Observability.Capacity = 1000
	}
}

// CandleTTLs converts the configured overrides. Unknown ranges and
// non-positive values are ignored.
func (c Root) CandleTTLs() map[adapters.Range]time.Duration {
	out := map[adapters.Range]time.Duration{}
	for k, secs := range c.Cache.TTLSeconds {
		r, err := adapters.ParseRange(strings.TrimSpace(k))
		if err != nil || secs <= 0 {
			continue
		}
		out[r] = time.Duration(secs) * time.Second
	}
	return out
}

// Timeouts as durations.
func (s Server) ReadTimeout() time.Duration  { return time.Duration(s.ReadTimeoutSeconds) * time.Second }
func (s Server) WriteTimeout() time.Duration { return time.Duration(s.WriteTimeoutSeconds) * time.Second }
func (s Server) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}
