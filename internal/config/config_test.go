package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GATEWAY_ADDR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, []string{"finnhub", "polygon"}, c.Chains.Quote)
	assert.Equal(t, []string{"finnhub", "polygon", "alphavantage"}, c.Chains.Candles)
	assert.Equal(t, []string{"finnhub", "polygon", "alphavantage"}, c.Chains.Search)
	assert.Equal(t, 1000, c.Observability.Capacity)
	assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout())
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("GATEWAY_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	body := `
server:
  addr: ":7000"
logging:
  level: debug
providers:
  polygon:
    api_key_env: MY_POLYGON_KEY
    timeout_seconds: 3
    rate_limit_per_minute: 5
chains:
  quote: [polygon, alphavantage]
cache:
  ttl_seconds:
    24h: 15
    5Y: 0
    bogus: 20
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", c.Server.Addr, "env wins over file")
	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, []string{"polygon", "alphavantage"}, c.Chains.Quote)
	assert.Equal(t, "MY_POLYGON_KEY", c.Providers["polygon"].APIKeyEnv)
	assert.Equal(t, 3, c.Providers["polygon"].TimeoutSeconds)
	assert.Equal(t, map[adapters.Range]time.Duration{adapters.Range24H: 15 * time.Second}, c.CandleTTLs())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
