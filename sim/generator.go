package sim

import (
	"math"
	"math/rand"
	"time"

	"market-stats-go/market"
)

// GeneratorConfig 随机游走行情参数。
type GeneratorConfig struct {
	Seed       int64
	StartPrice float64
	// Volatility 每步价格相对波动（高斯标准差）。
	Volatility float64
	MaxQty     float64
	// BuyBias 主动买入概率，0.5 为均衡。
	BuyBias float64
	Venues  []string
	Start   time.Time
	Step    time.Duration
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       1,
		StartPrice: 100,
		Volatility: 0.001,
		MaxQty:     5,
		BuyBias:    0.5,
		Venues:     []string{"binance_futures", "bybit"},
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Step:       time.Second,
	}
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	d := DefaultGeneratorConfig()
	if c.StartPrice <= 0 {
		c.StartPrice = d.StartPrice
	}
	if c.Volatility <= 0 {
		c.Volatility = d.Volatility
	}
	if c.MaxQty <= 0 {
		c.MaxQty = d.MaxQty
	}
	if c.BuyBias <= 0 || c.BuyBias >= 1 {
		c.BuyBias = d.BuyBias
	}
	if len(c.Venues) == 0 {
		c.Venues = d.Venues
	}
	if c.Start.IsZero() {
		c.Start = d.Start
	}
	if c.Step <= 0 {
		c.Step = d.Step
	}
	return c
}

// Generator 同一种子产生同一序列；非并发安全。
type Generator struct {
	cfg   GeneratorConfig
	rng   *rand.Rand
	price float64
	now   time.Time
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		price: cfg.StartPrice,
		now:   cfg.Start,
	}
}

func (g *Generator) Price() float64 { return g.price }

func (g *Generator) advance() {
	g.now = g.now.Add(g.cfg.Step)
	g.price *= math.Exp(g.rng.NormFloat64() * g.cfg.Volatility)
}

// NextTick 前进一步并返回一笔随机成交。
func (g *Generator) NextTick() market.Tick {
	g.advance()
	side := market.SideSell
	if g.rng.Float64() < g.cfg.BuyBias {
		side = market.SideBuy
	}
	qty := g.cfg.MaxQty * (0.01 + 0.99*g.rng.Float64())
	return market.Tick{Ts: g.now, Price: g.price, Qty: qty, Side: side}
}

// NextSnapshot 以当前价格为中心为每个交易所生成报价，不推进价格。
func (g *Generator) NextSnapshot() market.TickerSnapshot {
	snap := market.TickerSnapshot{
		Ts:     g.now,
		Venues: make(map[string]market.VenueQuote, len(g.cfg.Venues)),
	}
	for _, v := range g.cfg.Venues {
		// 交易所间 ±5bp 价差
		spread := (g.rng.Float64() - 0.5) * 0.001
		snap.Venues[v] = market.VenueQuote{
			Price:  g.price * (1 + spread),
			Volume: 100 + 900*g.rng.Float64(),
		}
	}
	return snap
}
