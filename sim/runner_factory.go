package sim

import (
	"errors"
	"strings"

	"market-stats-go/market"
)

// RunnerConfig 描述 Runner 的可选参数。
type RunnerConfig struct {
	Symbol      string
	TickerEvery int
	Generator   GeneratorConfig
	Engine      market.EngineConfig
	Observer    market.Observer
}

// BuildRunner 基于配置快速组装 Runner（使用内存组件，适合离线/仿真）。
func BuildRunner(cfg RunnerConfig) (*Runner, error) {
	symbol := strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	if symbol == "" {
		return nil, errors.New("symbol required")
	}
	engineCfg := cfg.Engine
	if engineCfg.WindowSize == 0 {
		engineCfg = market.DefaultEngineConfig()
	}
	svc := market.NewService(market.NewPublisher(), engineCfg)
	if cfg.Observer != nil {
		svc.SetObserver(cfg.Observer)
	}
	svc.Track(symbol)
	return &Runner{
		Symbol:      symbol,
		Svc:         svc,
		Gen:         NewGenerator(cfg.Generator),
		TickerEvery: cfg.TickerEvery,
	}, nil
}
