package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"market-stats-go/infrastructure/logger"
	"market-stats-go/market"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string         `yaml:"env"`
	Log     logger.Config  `yaml:"log"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Symbols []string       `yaml:"symbols"`
	Engine  EngineSettings `yaml:"engine"`
	Feed    FeedConfig     `yaml:"feed"`
	API     APIConfig      `yaml:"api"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空则关闭
}

// EngineSettings 统计引擎参数，可热更新。
type EngineSettings struct {
	WindowSize           int          `yaml:"windowSize"` // 0 表示默认，上限 50
	LargeTradeValue      float64      `yaml:"largeTradeValue"`      // 大单名义价值阈值
	AnchorType           string       `yaml:"anchorType"`           // session/weekly/monthly/custom
	CustomAnchor         string       `yaml:"customAnchor"`         // RFC3339，anchorType=custom 时必填
	BandStdDevMultiplier float64      `yaml:"bandStdDevMultiplier"` // 带宽标准差倍数，0 表示默认 2
	VWAPMode             string       `yaml:"vwapMode"`             // running/legacy
	Timezone             string       `yaml:"timezone"`             // 锚点计算时区
	Venues               []string     `yaml:"venues"`               // 参与 VWAP 的交易所；空=全部
	VPIN                 VPINSettings `yaml:"vpin"`
}

type VPINSettings struct {
	BucketVolume   float64 `yaml:"bucketVolume"`
	MaxBuckets     int     `yaml:"maxBuckets"`
	ToxicThreshold float64 `yaml:"toxicThreshold"`
}

// FeedConfig 行情源配置。
type FeedConfig struct {
	TradeWSEndpoint  string   `yaml:"tradeWSEndpoint"`
	BinanceRESTURL   string   `yaml:"binanceRESTURL"`
	BybitRESTURL     string   `yaml:"bybitRESTURL"`
	TickerVenues     []string `yaml:"tickerVenues"` // binance_futures, bybit
	TickerIntervalMs int      `yaml:"tickerIntervalMs"`
	// 资金费率/持仓量轮询的交易所，空=关闭；资金费率按 8h 结算，默认 30s 一次
	DerivativesVenues     []string `yaml:"derivativesVenues"`
	DerivativesIntervalMs int      `yaml:"derivativesIntervalMs"`
	ReconnectBackoffMs    int      `yaml:"reconnectBackoffMs"`
	MaxBackoffMs          int      `yaml:"maxBackoffMs"`
	RequestTimeoutMs      int      `yaml:"requestTimeoutMs"`
}

// APIConfig 仪表盘 REST 接口（signals/watchlists）。
type APIConfig struct {
	BaseURL    string  `yaml:"baseURL"`
	Token      string  `yaml:"token"`
	RatePerSec float64 `yaml:"ratePerSec"`
	Burst      int     `yaml:"burst"`
	TimeoutMs  int     `yaml:"timeoutMs"`
}

// Default 返回可直接运行的默认配置。
func Default() AppConfig {
	return AppConfig{
		Env:     "dev",
		Log:     logger.DefaultConfig(),
		Metrics: MetricsConfig{Addr: ":9100"},
		Engine: EngineSettings{
			WindowSize:           market.DefaultWindowSize,
			LargeTradeValue:      market.DefaultLargeTradeValue,
			AnchorType:           "session",
			BandStdDevMultiplier: market.DefaultBandMultiplier,
			VWAPMode:             "running",
			Timezone:             "UTC",
		},
		Feed: FeedConfig{
			TradeWSEndpoint:       "wss://fstream.binance.com",
			BinanceRESTURL:        "https://fapi.binance.com",
			BybitRESTURL:          "https://api.bybit.com",
			TickerVenues:          []string{"binance_futures", "bybit"},
			TickerIntervalMs:      1000,
			DerivativesVenues:     []string{"binance_futures", "bybit"},
			DerivativesIntervalMs: 30000,
			ReconnectBackoffMs:    1000,
			MaxBackoffMs:          30000,
			RequestTimeoutMs:      10000,
		},
		API: APIConfig{
			BaseURL:    "http://localhost:8000",
			RatePerSec: 5,
			Burst:      5,
			TimeoutMs:  10000,
		},
	}
}

// Load reads YAML config from path on top of Default() and validates it.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.normalize()
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MS_API_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("MS_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("MS_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("MS_SYMBOLS"); v != "" {
		cfg.Symbols = strings.Split(v, ",")
		cfg.normalize()
	}
	return cfg, Validate(cfg)
}

func (c *AppConfig) normalize() {
	for i, s := range c.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols config is required")
	}
	for _, s := range cfg.Symbols {
		if s == "" {
			return errors.New("symbols must not contain empty entries")
		}
	}
	if _, err := cfg.Engine.ToEngineConfig(); err != nil {
		return err
	}
	if cfg.Feed.TickerIntervalMs < 0 {
		return errors.New("feed.tickerIntervalMs must be >= 0")
	}
	if cfg.Feed.ReconnectBackoffMs < 0 || cfg.Feed.MaxBackoffMs < 0 {
		return errors.New("feed backoff must be >= 0")
	}
	for _, v := range cfg.Feed.TickerVenues {
		if v != VenueBinanceFutures && v != VenueBybit {
			return fmt.Errorf("feed.tickerVenues: unknown venue %q", v)
		}
	}
	for _, v := range cfg.Feed.DerivativesVenues {
		if v != VenueBinanceFutures && v != VenueBybit {
			return fmt.Errorf("feed.derivativesVenues: unknown venue %q", v)
		}
	}
	if cfg.Feed.DerivativesIntervalMs < 0 {
		return errors.New("feed.derivativesIntervalMs must be >= 0")
	}
	if cfg.API.RatePerSec < 0 {
		return errors.New("api.ratePerSec must be >= 0")
	}
	return nil
}

// Ticker venues understood by the gateway.
const (
	VenueBinanceFutures = "binance_futures"
	VenueBybit          = "bybit"
)

// Equal 判断两份引擎参数是否一致；一致时热更新可跳过。
func (s EngineSettings) Equal(o EngineSettings) bool {
	if s.WindowSize != o.WindowSize ||
		s.LargeTradeValue != o.LargeTradeValue ||
		s.AnchorType != o.AnchorType ||
		s.CustomAnchor != o.CustomAnchor ||
		s.BandStdDevMultiplier != o.BandStdDevMultiplier ||
		s.VWAPMode != o.VWAPMode ||
		s.Timezone != o.Timezone ||
		s.VPIN != o.VPIN ||
		len(s.Venues) != len(o.Venues) {
		return false
	}
	for i := range s.Venues {
		if s.Venues[i] != o.Venues[i] {
			return false
		}
	}
	return true
}

// ToEngineConfig converts the YAML settings into market.EngineConfig.
func (s EngineSettings) ToEngineConfig() (market.EngineConfig, error) {
	cfg := market.DefaultEngineConfig()
	if s.WindowSize < 0 || s.WindowSize > market.MaxWindowSize {
		return cfg, fmt.Errorf("engine.windowSize must be within [0, %d]", market.MaxWindowSize)
	}
	if s.WindowSize > 0 {
		cfg.WindowSize = s.WindowSize
	}
	if s.LargeTradeValue < 0 {
		return cfg, errors.New("engine.largeTradeValue must be >= 0")
	}
	if s.LargeTradeValue > 0 {
		cfg.LargeTradeValue = s.LargeTradeValue
	}
	anchor, err := market.ParseAnchorType(s.AnchorType)
	if err != nil {
		return cfg, fmt.Errorf("engine.anchorType: %w", err)
	}
	cfg.VWAP.AnchorType = anchor
	if anchor == market.AnchorCustom {
		if s.CustomAnchor == "" {
			return cfg, errors.New("engine.customAnchor is required when anchorType=custom")
		}
		ts, err := time.Parse(time.RFC3339, s.CustomAnchor)
		if err != nil {
			return cfg, fmt.Errorf("engine.customAnchor: %w", err)
		}
		cfg.VWAP.CustomAnchor = ts
	}
	if s.BandStdDevMultiplier < 0 {
		return cfg, errors.New("engine.bandStdDevMultiplier must be >= 0")
	}
	if s.BandStdDevMultiplier > 0 {
		cfg.VWAP.BandStdDevMultiplier = s.BandStdDevMultiplier
	}
	if err := cfg.VWAP.Mode.UnmarshalText([]byte(s.VWAPMode)); err != nil {
		return cfg, fmt.Errorf("engine.vwapMode: %w", err)
	}
	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return cfg, fmt.Errorf("engine.timezone: %w", err)
		}
		cfg.VWAP.Location = loc
	}
	cfg.VWAP.Venues = append([]string(nil), s.Venues...)
	if s.VPIN.BucketVolume > 0 {
		cfg.VPIN.BucketVolume = s.VPIN.BucketVolume
	}
	if s.VPIN.MaxBuckets > 0 {
		cfg.VPIN.MaxBuckets = s.VPIN.MaxBuckets
	}
	if s.VPIN.ToxicThreshold > 0 {
		cfg.VPIN.ToxicThreshold = s.VPIN.ToxicThreshold
	}
	return cfg, nil
}
