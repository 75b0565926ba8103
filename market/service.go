package market

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrUnknownSymbol 未跟踪的交易对。
var ErrUnknownSymbol = errors.New("market: symbol not tracked")

// Drop reasons reported to the Observer.
const (
	DropMalformedTick = "malformed_tick"
	DropZeroVolume    = "zero_volume"
	DropUntracked     = "untracked_symbol"
	DropBadDerivative = "bad_derivative"
)

// Observer 接收引擎输出（指标、日志等旁路）。
type Observer interface {
	OnDelta(symbol string, p DeltaPoint, s StatsSnapshot)
	OnVWAP(symbol string, p VWAPPoint)
	OnDrop(symbol, reason string)
}

// DerivativesObserver 是 Observer 的可选扩展，接收资金费率与持仓量更新。
type DerivativesObserver interface {
	OnFunding(symbol string, f FundingRate)
	OnOpenInterest(symbol string, o OpenInterest)
}

// Service 维护每个交易对独立的统计引擎，并向订阅者广播。
type Service struct {
	pub *Publisher

	mu      sync.RWMutex
	obs     Observer
	cfg     EngineConfig
	engines map[string]*Engine
	last    map[string]time.Time
}

func NewService(pub *Publisher, cfg EngineConfig) *Service {
	if pub == nil {
		pub = NewPublisher()
	}
	return &Service{
		pub:     pub,
		cfg:     cfg,
		engines: make(map[string]*Engine),
		last:    make(map[string]time.Time),
	}
}

// SetObserver 可在运行中替换；nil 表示关闭旁路。
func (s *Service) SetObserver(o Observer) {
	s.mu.Lock()
	s.obs = o
	s.mu.Unlock()
}

func (s *Service) observer() Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obs
}

func (s *Service) Publisher() *Publisher { return s.pub }

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Track 为 symbol 创建空引擎；已存在则保持不变。
func (s *Service) Track(symbol string) *Engine {
	symbol = normalize(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[symbol]; ok {
		return e
	}
	e := NewEngine(symbol, s.cfg)
	s.engines[symbol] = e
	return e
}

// Untrack discards the symbol's engine and all accumulated state.
func (s *Service) Untrack(symbol string) {
	symbol = normalize(symbol)
	s.mu.Lock()
	delete(s.engines, symbol)
	delete(s.last, symbol)
	s.mu.Unlock()
}

// Switch 切换交易对：丢弃 from 的全部状态，并为 to 从空状态重新开始。
func (s *Service) Switch(from, to string) *Engine {
	s.Untrack(from)
	s.Untrack(to)
	return s.Track(to)
}

func (s *Service) Engine(symbol string) (*Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.engines[normalize(symbol)]
	return e, ok
}

// Symbols returns the tracked symbols in sorted order.
func (s *Service) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.engines))
	for sym := range s.engines {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// OnTrade 路由成交到对应引擎并广播。
func (s *Service) OnTrade(symbol string, t Tick) bool {
	symbol = normalize(symbol)
	e, ok := s.Engine(symbol)
	if !ok {
		s.drop(symbol, DropUntracked)
		return false
	}
	p, stats, ok := e.IngestTrade(t)
	if !ok {
		s.drop(symbol, DropMalformedTick)
		return false
	}
	s.touch(symbol)
	if obs := s.observer(); obs != nil {
		obs.OnDelta(symbol, p, stats)
	}
	s.pub.PublishDelta(DeltaUpdate{Symbol: symbol, Point: p, Stats: stats})
	return true
}

// OnTicker 路由多交易所快照到对应引擎并广播。
func (s *Service) OnTicker(symbol string, snap TickerSnapshot) bool {
	symbol = normalize(symbol)
	e, ok := s.Engine(symbol)
	if !ok {
		s.drop(symbol, DropUntracked)
		return false
	}
	p, ok := e.IngestVWAPTick(snap)
	if !ok {
		s.drop(symbol, DropZeroVolume)
		return false
	}
	s.touch(symbol)
	if obs := s.observer(); obs != nil {
		obs.OnVWAP(symbol, p)
	}
	s.pub.PublishVWAP(VWAPUpdate{Symbol: symbol, Point: p})
	return true
}

// OnFunding 路由资金费率读数；无效或过期读数计为丢弃。
func (s *Service) OnFunding(symbol string, f FundingRate) bool {
	symbol = normalize(symbol)
	e, ok := s.Engine(symbol)
	if !ok {
		s.drop(symbol, DropUntracked)
		return false
	}
	if !e.IngestFunding(f) {
		s.drop(symbol, DropBadDerivative)
		return false
	}
	s.touch(symbol)
	if obs, ok := s.observer().(DerivativesObserver); ok {
		obs.OnFunding(symbol, f)
	}
	return true
}

func (s *Service) OnOpenInterest(symbol string, o OpenInterest) bool {
	symbol = normalize(symbol)
	e, ok := s.Engine(symbol)
	if !ok {
		s.drop(symbol, DropUntracked)
		return false
	}
	o, ok = e.IngestOpenInterest(o)
	if !ok {
		s.drop(symbol, DropBadDerivative)
		return false
	}
	s.touch(symbol)
	if obs, ok := s.observer().(DerivativesObserver); ok {
		obs.OnOpenInterest(symbol, o)
	}
	return true
}

func (s *Service) drop(symbol, reason string) {
	if obs := s.observer(); obs != nil {
		obs.OnDrop(symbol, reason)
	}
}

func (s *Service) touch(symbol string) {
	s.mu.Lock()
	s.last[symbol] = time.Now()
	s.mu.Unlock()
}

// Snapshot returns the symbol's immutable snapshot.
func (s *Service) Snapshot(symbol string) (EngineSnapshot, error) {
	e, ok := s.Engine(symbol)
	if !ok {
		return EngineSnapshot{}, ErrUnknownSymbol
	}
	return e.Snapshot(), nil
}

// UpdateConfig 将新参数下发到所有引擎（热更新）。
func (s *Service) UpdateConfig(cfg EngineConfig) {
	s.mu.Lock()
	s.cfg = cfg
	engines := make([]*Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	s.mu.Unlock()
	for _, e := range engines {
		e.SetConfig(cfg)
	}
}

// Staleness 返回距离上次更新的时间间隔；如无数据返回一年。
func (s *Service) Staleness(symbol string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.last[normalize(symbol)]
	if !ok {
		return time.Hour * 24 * 365
	}
	return time.Since(ts)
}
