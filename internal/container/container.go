package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"market-stats-go/config"
	"market-stats-go/gateway"
	"market-stats-go/infrastructure/alert"
	"market-stats-go/infrastructure/logger"
	"market-stats-go/market"
	"market-stats-go/metrics"
	"market-stats-go/monitor/logschema"
)

const (
	statsLogInterval = time.Minute
	watchCooldown    = time.Second
	tickerRatePerSec = 10
	alertThrottle    = 5 * time.Minute
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfgPath string
	cfg     config.AppConfig
	cfgMu   sync.RWMutex

	// 基础设施
	logger *logger.Logger

	// 核心服务
	publisher *market.Publisher
	service   *market.Service

	// 行情源
	tradeStream *gateway.BinanceTradeStream
	tickers     *gateway.TickerAggregator
	derivatives *gateway.DerivativesPoller

	// 生命周期管理
	lifecycle *LifecycleManager
}

// New 创建新的Container实例
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := config.ValidateLive(cfg); err != nil {
		return nil, fmt.Errorf("validate config failed: %w", err)
	}
	return NewWithConfig(configPath, cfg), nil
}

// NewWithConfig 使用已加载的配置；configPath 为空时不监听配置文件。
func NewWithConfig(configPath string, cfg config.AppConfig) *Container {
	return &Container{
		cfgPath:   configPath,
		cfg:       cfg,
		lifecycle: NewLifecycleManager(),
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}

	if err := c.buildCoreServices(); err != nil {
		return fmt.Errorf("build core services failed: %w", err)
	}

	if err := c.buildFeeds(); err != nil {
		return fmt.Errorf("build feeds failed: %w", err)
	}

	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	if c.logger != nil {
		return nil
	}
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.logger.Info("infrastructure built", zap.String("env", c.cfg.Env))
	return nil
}

func (c *Container) buildCoreServices() error {
	engineCfg, err := c.cfg.Engine.ToEngineConfig()
	if err != nil {
		return err
	}
	c.publisher = market.NewPublisher()
	c.service = market.NewService(c.publisher, engineCfg)
	alerts := alert.NewManager(alertThrottle, alert.NewLogChannel("log", c.logger))
	c.service.SetObserver(multiObserver{
		metrics.EngineObserver{},
		&logObserver{log: c.logger},
		alert.NewStatsRules(alerts),
	})
	for _, sym := range c.cfg.Symbols {
		c.service.Track(sym)
	}
	c.logger.Info("core services built", zap.Strings("symbols", c.service.Symbols()))
	return nil
}

func (c *Container) buildFeeds() error {
	feed := c.cfg.Feed
	c.tradeStream = gateway.NewBinanceTradeStream(feed.TradeWSEndpoint)
	c.tradeStream.EventSink = c.logger.LogFeed
	if feed.ReconnectBackoffMs > 0 {
		c.tradeStream.Backoff = time.Duration(feed.ReconnectBackoffMs) * time.Millisecond
	}
	if feed.MaxBackoffMs > 0 {
		c.tradeStream.MaxBackoff = time.Duration(feed.MaxBackoffMs) * time.Millisecond
	}

	httpCli := gateway.NewDefaultHTTPClient(time.Duration(feed.RequestTimeoutMs) * time.Millisecond)
	if len(feed.TickerVenues) == 0 {
		c.logger.Warn("no ticker venues configured, VWAP disabled")
	} else {
		sources, err := gateway.BuildTickerSources(feed.TickerVenues, feed.BinanceRESTURL, feed.BybitRESTURL, httpCli)
		if err != nil {
			return err
		}
		limiter := rate.NewLimiter(rate.Limit(tickerRatePerSec), len(sources))
		c.tickers = gateway.NewTickerAggregator(time.Duration(feed.TickerIntervalMs)*time.Millisecond, limiter, sources...)
		c.tickers.EventSink = c.logger.LogFeed
	}

	if len(feed.DerivativesVenues) > 0 {
		sources, err := gateway.BuildDerivativesSources(feed.DerivativesVenues, feed.BinanceRESTURL, feed.BybitRESTURL, httpCli)
		if err != nil {
			return err
		}
		// 每个交易所两个接口
		limiter := rate.NewLimiter(rate.Limit(tickerRatePerSec), 2*len(sources))
		c.derivatives = gateway.NewDerivativesPoller(time.Duration(feed.DerivativesIntervalMs)*time.Millisecond, limiter, sources...)
		c.derivatives.EventSink = c.logger.LogFeed
	}
	c.logger.Info("feeds built",
		zap.Strings("tickerVenues", feed.TickerVenues),
		zap.Strings("derivativesVenues", feed.DerivativesVenues))
	return nil
}

func (c *Container) registerLifecycleComponents() {
	if c.cfg.Metrics.Addr != "" {
		c.lifecycle.Register(&metricsComponent{
			name:   "metrics_server",
			addr:   c.cfg.Metrics.Addr,
			logger: c.logger,
		})
	}

	handler := &gateway.MarketDataHandler{Svc: c.service}
	symbols := c.service.Symbols()
	c.lifecycle.Register(&subscriptionComponent{
		name: "trade_stream",
		start: func(ctx context.Context) (gateway.CancelFunc, error) {
			return c.tradeStream.Subscribe(ctx, symbols, handler.OnTrade)
		},
	})

	if c.tickers != nil {
		c.lifecycle.Register(&subscriptionComponent{
			name: "ticker_aggregator",
			start: func(ctx context.Context) (gateway.CancelFunc, error) {
				return subscribeEach(symbols, func(sym string) (gateway.CancelFunc, error) {
					return c.tickers.Subscribe(ctx, sym, handler.OnTicker)
				})
			},
		})
	}

	if c.derivatives != nil {
		c.lifecycle.Register(&subscriptionComponent{
			name: "derivatives_poller",
			start: func(ctx context.Context) (gateway.CancelFunc, error) {
				return subscribeEach(symbols, func(sym string) (gateway.CancelFunc, error) {
					return c.derivatives.Subscribe(ctx, sym, handler.OnDerivatives)
				})
			},
		})
	}

	c.lifecycle.Register(&subscriptionComponent{
		name:  "stats_reporter",
		start: func(ctx context.Context) (gateway.CancelFunc, error) { return c.runStatsReporter(ctx), nil },
	})

	if c.cfgPath != "" {
		c.lifecycle.Register(&subscriptionComponent{
			name:  "config_watcher",
			start: func(ctx context.Context) (gateway.CancelFunc, error) { return c.runConfigWatcher(ctx), nil },
		})
	}
}

// subscribeEach 为每个交易对订阅一次；任何一次失败都会撤销已建立的订阅。
func subscribeEach(symbols []string, sub func(symbol string) (gateway.CancelFunc, error)) (gateway.CancelFunc, error) {
	cancels := make([]gateway.CancelFunc, 0, len(symbols))
	stopAll := func() {
		for _, cf := range cancels {
			cf()
		}
	}
	for _, sym := range symbols {
		cancel, err := sub(sym)
		if err != nil {
			stopAll()
			return nil, err
		}
		cancels = append(cancels, cancel)
	}
	return stopAll, nil
}

// background 启动 fn 并返回等待其退出的 CancelFunc。
func background(ctx context.Context, fn func(ctx context.Context)) gateway.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

func (c *Container) runStatsReporter(ctx context.Context) gateway.CancelFunc {
	return background(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(statsLogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.logStats()
			}
		}
	})
}

func (c *Container) logStats() {
	for _, sym := range c.service.Symbols() {
		snap, err := c.service.Snapshot(sym)
		if err != nil {
			continue
		}
		fields := map[string]interface{}{
			"symbol":     sym,
			"totalDelta": snap.Stats.TotalDelta,
			"momentum":   snap.Stats.Momentum.String(),
			"strength":   snap.Stats.Strength,
			"imbalance":  snap.Stats.ImbalancePercentage,
			"vpin":       snap.Stats.VPIN,
			"staleness":  c.service.Staleness(sym).String(),
		}
		if p, ok := snap.LatestVWAP(); ok {
			fields["vwap"] = p.VWAP
			fields["bandPosition"] = p.BandPosition.String()
		}
		if d := snap.Derivatives; len(d.Funding) > 0 || len(d.OpenInterest) > 0 {
			fields["avgFundingRate"] = d.AvgFundingRate
			fields["openInterest"] = d.TotalOpenInterest
		}
		c.logger.LogEvent(zapcore.InfoLevel, logschema.EventStatsSnapshot, fields)
	}
}

func (c *Container) runConfigWatcher(ctx context.Context) gateway.CancelFunc {
	w := config.Watcher{
		Path:     c.cfgPath,
		Cooldown: watchCooldown,
		OnError: func(err error) {
			c.logger.LogError(err, map[string]interface{}{"action": "config_reload", "path": c.cfgPath})
		},
	}
	return background(ctx, func(ctx context.Context) {
		_ = w.Start(ctx, c.ApplyConfig)
	})
}

// ApplyConfig 热更新引擎参数；交易对或行情源变化需要重启。
func (c *Container) ApplyConfig(next config.AppConfig) {
	engineCfg, err := next.Engine.ToEngineConfig()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "config_reload", "path": c.cfgPath})
		return
	}
	c.cfgMu.Lock()
	prev := c.cfg
	c.cfg.Engine = next.Engine
	c.cfgMu.Unlock()

	engineChanged := !prev.Engine.Equal(next.Engine)
	if engineChanged {
		c.service.UpdateConfig(engineCfg)
	}
	fields := map[string]interface{}{
		"path":          c.cfgPath,
		"engineChanged": engineChanged,
		"anchorType": engineCfg.VWAP.AnchorType.String(),
		"vwapMode":   engineCfg.VWAP.Mode.String(),
		"windowSize": engineCfg.WindowSize,
	}
	if !sameStrings(prev.Symbols, next.Symbols) || !sameStrings(prev.Feed.TickerVenues, next.Feed.TickerVenues) {
		fields["restartRequired"] = true
	}
	c.logger.LogEvent(zapcore.InfoLevel, logschema.EventConfigReload, fields)
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Container) Start(ctx context.Context) error {
	c.logger.Info("starting container...")

	if err := c.lifecycle.StartAll(ctx); err != nil {
		return fmt.Errorf("start failed: %w", err)
	}

	c.logger.Info("container started")
	return nil
}

func (c *Container) Stop() error {
	c.logger.Info("stopping container...")

	err := c.lifecycle.StopAll()
	if err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "stop"})
	}
	c.logStats()
	_ = c.logger.Close()
	return err
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}

func (c *Container) Service() *market.Service { return c.service }

func (c *Container) Logger() *logger.Logger { return c.logger }

// Config 返回当前生效的配置副本。
func (c *Container) Config() config.AppConfig {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}
