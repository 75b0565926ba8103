package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-stats-go/market"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const sampleYAML = `
env: dev
symbols: [btcusdt, " ethusdt "]
engine:
  windowSize: 30
  anchorType: weekly
  bandStdDevMultiplier: 1.5
  vwapMode: legacy
  timezone: UTC
  vpin:
    bucketVolume: 1000
feed:
  tickerVenues: [bybit]
  tickerIntervalMs: 500
api:
  baseURL: https://dash.test
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, []string{VenueBybit}, cfg.Feed.TickerVenues)
	assert.Equal(t, 500, cfg.Feed.TickerIntervalMs)
	assert.Equal(t, []string{VenueBinanceFutures, VenueBybit}, cfg.Feed.DerivativesVenues)
	assert.Equal(t, 30000, cfg.Feed.DerivativesIntervalMs)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, "wss://fstream.binance.com", cfg.Feed.TradeWSEndpoint)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)

	ec, err := cfg.Engine.ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 30, ec.WindowSize)
	assert.Equal(t, market.AnchorWeekly, ec.VWAP.AnchorType)
	assert.Equal(t, 1.5, ec.VWAP.BandStdDevMultiplier)
	assert.Equal(t, market.VWAPLegacy, ec.VWAP.Mode)
	assert.Equal(t, 1000.0, ec.VPIN.BucketVolume)
	assert.Equal(t, market.DefaultVPINBuckets, ec.VPIN.MaxBuckets)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)
	t.Setenv("MS_API_TOKEN", "secret")
	t.Setenv("MS_LOG_LEVEL", "debug")
	t.Setenv("MS_METRICS_ADDR", ":9999")
	t.Setenv("MS_SYMBOLS", "solusdt,bnbusdt")

	cfg, err := LoadWithEnvOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9999", cfg.Metrics.Addr)
	assert.Equal(t, []string{"SOLUSDT", "BNBUSDT"}, cfg.Symbols)
}

func TestValidate(t *testing.T) {
	base := Default()
	base.Symbols = []string{"BTCUSDT"}
	require.NoError(t, Validate(base))

	cases := map[string]func(*AppConfig){
		"missing env":      func(c *AppConfig) { c.Env = "" },
		"no symbols":       func(c *AppConfig) { c.Symbols = nil },
		"empty symbol":     func(c *AppConfig) { c.Symbols = []string{""} },
		"bad anchor":       func(c *AppConfig) { c.Engine.AnchorType = "hourly" },
		"custom no time":   func(c *AppConfig) { c.Engine.AnchorType = "custom" },
		"bad vwap mode":    func(c *AppConfig) { c.Engine.VWAPMode = "ema" },
		"bad timezone":     func(c *AppConfig) { c.Engine.Timezone = "Mars/Olympus" },
		"negative window":  func(c *AppConfig) { c.Engine.WindowSize = -1 },
		"window over cap":  func(c *AppConfig) { c.Engine.WindowSize = 51 },
		"unknown venue":    func(c *AppConfig) { c.Feed.TickerVenues = []string{"kraken"} },
		"negative backoff": func(c *AppConfig) { c.Feed.MaxBackoffMs = -5 },
		"negative rate":    func(c *AppConfig) { c.API.RatePerSec = -1 },
		"unknown deriv":    func(c *AppConfig) { c.Feed.DerivativesVenues = []string{"okx"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			cfg.Symbols = append([]string(nil), base.Symbols...)
			mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestToEngineConfigCustomAnchor(t *testing.T) {
	s := Default().Engine
	s.AnchorType = "custom"
	s.CustomAnchor = "2024-03-01T12:00:00Z"
	s.Timezone = "America/New_York"
	ec, err := s.ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, market.AnchorCustom, ec.VWAP.AnchorType)
	assert.True(t, ec.VWAP.CustomAnchor.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "America/New_York", ec.VWAP.Location.String())
}

func TestValidateLive(t *testing.T) {
	cfg := Default()
	cfg.Symbols = []string{"BTCUSDT"}
	require.NoError(t, ValidateLive(cfg))

	cfg.Feed.TradeWSEndpoint = ""
	var inv ErrInvalid
	assert.ErrorAs(t, ValidateLive(cfg), &inv)

	cfg = Default()
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.Feed.BybitRESTURL = ""
	assert.Error(t, ValidateLive(cfg))

	cfg.Feed.TickerVenues = []string{VenueBinanceFutures}
	// 资金费率轮询同样需要 bybit 地址
	assert.Error(t, ValidateLive(cfg))
	cfg.Feed.DerivativesVenues = []string{VenueBinanceFutures}
	assert.NoError(t, ValidateLive(cfg))

	cfg.Feed.DerivativesIntervalMs = 0
	assert.Error(t, ValidateLive(cfg))
	cfg.Feed.DerivativesVenues = nil
	assert.NoError(t, ValidateLive(cfg))
}

func TestValidateAPI(t *testing.T) {
	cfg := Default()
	assert.NoError(t, ValidateAPI(cfg))
	cfg.API.RatePerSec = 0
	assert.Error(t, ValidateAPI(cfg))
	cfg.API.BaseURL = ""
	assert.Error(t, ValidateAPI(cfg))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MS_DOTENV_VALUE=from-file\n"), 0o644))
	t.Setenv("MS_DOTENV_VALUE", "")
	os.Unsetenv("MS_DOTENV_VALUE")

	require.NoError(t, LoadEnvFile(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("MS_DOTENV_VALUE"))
}

func TestEngineSettingsEqual(t *testing.T) {
	a := Default().Engine
	a.Venues = []string{VenueBybit}
	b := a
	b.Venues = []string{VenueBybit}
	assert.True(t, a.Equal(b))

	b.BandStdDevMultiplier = 3
	assert.False(t, a.Equal(b))

	b = a
	b.Venues = []string{VenueBinanceFutures}
	assert.False(t, a.Equal(b))

	b = a
	b.VPIN.ToxicThreshold = 0.7
	assert.False(t, a.Equal(b))
}

func TestWindowSizeCap(t *testing.T) {
	s := Default().Engine
	s.WindowSize = 50
	ec, err := s.ToEngineConfig()
	require.NoError(t, err)
	assert.Equal(t, 50, ec.WindowSize)

	s.WindowSize = 200
	_, err = s.ToEngineConfig()
	assert.Error(t, err)
}
