package market

import (
	"sync"
	"time"
)

// EngineConfig 单个交易对统计引擎的参数。
type EngineConfig struct {
	WindowSize      int
	LargeTradeValue float64
	VWAP            VWAPConfig
	VPIN            VPINConfig
}

// DefaultEngineConfig returns session-anchored, 2σ bands, running VWAP.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WindowSize:      DefaultWindowSize,
		LargeTradeValue: DefaultLargeTradeValue,
		VWAP: VWAPConfig{
			AnchorType:           AnchorSession,
			BandStdDevMultiplier: DefaultBandMultiplier,
			Mode:                 VWAPRunning,
			Location:             time.UTC,
		},
		VPIN: VPINConfig{
			BucketVolume:   DefaultVPINBucketVolume,
			MaxBuckets:     DefaultVPINBuckets,
			ToxicThreshold: DefaultToxicThreshold,
		},
	}
}

// EngineSnapshot is an immutable copy of an engine's state for readers.
type EngineSnapshot struct {
	Symbol    string
	Deltas    []DeltaPoint
	VWAPs     []VWAPPoint
	Stats     StatsSnapshot
	// Derivatives 资金费率与持仓量，与成交/行情窗口相互独立。
	Derivatives DerivativesSnapshot
	UpdatedAt   time.Time
}

// LatestVWAP 返回最新的 VWAP 点。
func (s EngineSnapshot) LatestVWAP() (VWAPPoint, bool) {
	if len(s.VWAPs) == 0 {
		return VWAPPoint{}, false
	}
	return s.VWAPs[len(s.VWAPs)-1], true
}

// Engine is the rolling order-flow/VWAP statistics engine for one symbol.
// Each ingest is atomic with respect to the engine's own state; the engine
// performs no I/O.
type Engine struct {
	mu      sync.RWMutex
	symbol  string
	cfg     EngineConfig
	flow    *OrderFlowTracker
	vwap    *VWAPTracker
	vpin    *VPINCalculator
	derivs  *DerivativesTracker
	stats   StatsSnapshot
	updated time.Time
}

func NewEngine(symbol string, cfg EngineConfig) *Engine {
	e := &Engine{symbol: symbol, cfg: cfg}
	e.build()
	return e
}

func (e *Engine) build() {
	e.flow = NewOrderFlowTracker(e.cfg.WindowSize, e.cfg.LargeTradeValue)
	e.vwap = NewVWAPTracker(e.cfg.WindowSize, e.cfg.VWAP)
	e.vpin = NewVPINCalculator(e.cfg.VPIN)
	e.derivs = NewDerivativesTracker()
	e.stats = ComputeStats(nil)
	e.updated = time.Time{}
}

func (e *Engine) Symbol() string { return e.symbol }

// IngestTrade folds a trade tick and recomputes the stats snapshot.
// ok=false means the tick was malformed and nothing changed.
func (e *Engine) IngestTrade(t Tick) (DeltaPoint, StatsSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.flow.Ingest(t)
	if !ok {
		return DeltaPoint{}, e.stats, false
	}
	e.vpin.Add(p.BuyVolume, p.SellVolume)
	e.stats = e.flow.Stats()
	e.stats.VPIN = e.vpin.Value()
	e.stats.VPINReady = e.vpin.IsReady()
	e.stats.Toxic = e.vpin.IsToxic()
	e.updated = p.Ts
	return p, e.stats, true
}

// IngestVWAPTick folds a ticker snapshot. ok=false when total volume is zero.
func (e *Engine) IngestVWAPTick(snap TickerSnapshot) (VWAPPoint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.vwap.Ingest(snap)
	if ok {
		e.updated = p.Ts
	}
	return p, ok
}

// IngestFunding 更新某交易所的资金费率；ok=false 表示读数无效或过期。
func (e *Engine) IngestFunding(f FundingRate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.derivs.IngestFunding(f)
}

// IngestOpenInterest 更新某交易所的持仓量并返回带 Change 的读数。
func (e *Engine) IngestOpenInterest(o OpenInterest) (OpenInterest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.derivs.IngestOpenInterest(o)
}

// Stats 返回最近一次计算的统计快照。
func (e *Engine) Stats() StatsSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Snapshot returns a deep copy of the windows and the latest stats.
func (e *Engine) Snapshot() EngineSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return EngineSnapshot{
		Symbol:      e.symbol,
		Deltas:      e.flow.Points(),
		VWAPs:       e.vwap.Points(),
		Stats:       e.stats,
		Derivatives: e.derivs.Snapshot(),
		UpdatedAt:   e.updated,
	}
}

// Reset discards all windows and running totals.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.build()
}

// SetConfig 热更新锚点/带宽参数；窗口保留。窗口大小或大单阈值变化时重建引擎。
func (e *Engine) SetConfig(cfg EngineConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rebuild := cfg.WindowSize != e.cfg.WindowSize ||
		cfg.LargeTradeValue != e.cfg.LargeTradeValue ||
		cfg.VPIN != e.cfg.VPIN
	e.cfg = cfg
	if rebuild {
		e.build()
		return
	}
	e.vwap.SetConfig(cfg.VWAP)
}

func (e *Engine) Config() EngineConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}
