package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap/zapcore"

	"market-stats-go/infrastructure/logger"
	"market-stats-go/market"
	"market-stats-go/monitor/logschema"
	"market-stats-go/sim"
)

// 一个极简的本地模拟：随机游走成交与多交易所快照，驱动统计引擎并打印结果。
// 仅用于演示，不会连接真实交易所。
func main() {
	symbol := flag.String("symbol", "BTCUSDT", "trading symbol")
	ticks := flag.Int("ticks", 200, "number of random trades to simulate")
	tickerEvery := flag.Int("tickerEvery", 5, "emit one ticker snapshot every N trades (0 to disable)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	startPrice := flag.Float64("price", 100, "start price")
	vol := flag.Float64("vol", 0.001, "per-step volatility")
	buyBias := flag.Float64("buyBias", 0.5, "probability a trade is buyer-initiated")
	anchor := flag.String("anchor", "session", "anchor type: session/weekly/monthly")
	mode := flag.String("mode", "running", "vwap mode: running/legacy")
	logLevel := flag.String("logLevel", "info", "log level (debug prints every update)")
	flag.Parse()

	lg, err := logger.New(logger.Config{Level: *logLevel, Outputs: []string{"stdout"}, Format: "console"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Close()

	engineCfg := market.DefaultEngineConfig()
	if engineCfg.VWAP.AnchorType, err = market.ParseAnchorType(*anchor); err != nil {
		log.Fatalf("anchor: %v", err)
	}
	if err := engineCfg.VWAP.Mode.UnmarshalText([]byte(*mode)); err != nil {
		log.Fatalf("mode: %v", err)
	}

	runner, err := sim.BuildRunner(sim.RunnerConfig{
		Symbol:      *symbol,
		TickerEvery: *tickerEvery,
		Engine:      engineCfg,
		Observer:    printObserver{lg: lg},
		Generator: sim.GeneratorConfig{
			Seed:       *seed,
			StartPrice: *startPrice,
			Volatility: *vol,
			BuyBias:    *buyBias,
			Start:      time.Now().UTC(),
		},
	})
	if err != nil {
		log.Fatalf("build runner: %v", err)
	}

	res, err := runner.Run(context.Background(), *ticks)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	s := res.Snapshot.Stats
	fmt.Printf("trades=%d tickers=%d dropped=%d\n", res.Trades, res.Tickers, res.Dropped)
	fmt.Printf("totalDelta=%.2f avgDelta=%.2f max=%.2f min=%.2f\n", s.TotalDelta, s.AvgDelta, s.MaxDelta, s.MinDelta)
	fmt.Printf("imbalance=%.1f%% momentum=%s strength=%.1f largeTrades=%d vpin=%.3f toxic=%v\n",
		s.ImbalancePercentage, s.Momentum, s.Strength, s.LargeTrades, s.VPIN, s.Toxic)
	if p, ok := res.Snapshot.LatestVWAP(); ok {
		fmt.Printf("price=%.4f vwap=%.4f anchored=%.4f bands=[%.4f, %.4f] position=%s trend=%s\n",
			p.Price, p.VWAP, p.AnchoredVWAP, p.LowerBand, p.UpperBand, p.BandPosition, p.Trend)
	}
}

// printObserver 把每次更新写入 debug 日志。
type printObserver struct {
	lg *logger.Logger
}

func (o printObserver) OnDelta(symbol string, p market.DeltaPoint, _ market.StatsSnapshot) {
	o.lg.LogTick(symbol, map[string]interface{}{
		"price":           p.Price,
		"delta":           p.Delta,
		"cumulativeDelta": p.CumulativeDelta,
		"imbalanceRatio":  p.ImbalanceRatio,
	})
}

func (o printObserver) OnVWAP(symbol string, p market.VWAPPoint) {
	o.lg.LogVWAP(symbol, map[string]interface{}{
		"price":        p.Price,
		"vwap":         p.VWAP,
		"anchoredVwap": p.AnchoredVWAP,
		"bandPosition": p.BandPosition.String(),
	})
}

func (o printObserver) OnDrop(symbol, reason string) {
	o.lg.LogEvent(zapcore.DebugLevel, logschema.EventTickDropped, map[string]interface{}{"symbol": symbol, "reason": reason})
}
