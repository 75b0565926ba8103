package alert

import (
	"fmt"
	"math"
	"sync"

	"market-stats-go/market"
)

// ExtremeFundingRate 资金费率绝对值达到该值视为极端（0.1%/期）。
const ExtremeFundingRate = 0.001

// StatsRules 监听引擎输出，状态发生变化时告警：
// VPIN 进入/离开毒性区间、价格突破 VWAP 带、大单成交、资金费率极端。
type StatsRules struct {
	mgr *Manager

	mu      sync.Mutex
	toxic   map[string]bool
	band    map[string]market.BandPosition
	extreme map[string]bool // symbol|venue
}

func NewStatsRules(mgr *Manager) *StatsRules {
	return &StatsRules{
		mgr:     mgr,
		toxic:   make(map[string]bool),
		band:    make(map[string]market.BandPosition),
		extreme: make(map[string]bool),
	}
}

func (r *StatsRules) OnDelta(symbol string, p market.DeltaPoint, s market.StatsSnapshot) {
	r.mu.Lock()
	was := r.toxic[symbol]
	r.toxic[symbol] = s.Toxic
	r.mu.Unlock()

	if s.Toxic && !was {
		_ = r.mgr.Send(Alert{
			Level:   LevelWarning,
			Symbol:  symbol,
			Message: "order flow toxic",
			Fields:  map[string]interface{}{"vpin": s.VPIN},
		})
	} else if was && !s.Toxic {
		_ = r.mgr.Send(Alert{
			Level:   LevelInfo,
			Symbol:  symbol,
			Message: "order flow toxicity cleared",
			Fields:  map[string]interface{}{"vpin": s.VPIN},
		})
	}
	if p.LargeTrade {
		side := "buy"
		if p.Delta < 0 {
			side = "sell"
		}
		_ = r.mgr.Send(Alert{
			Level:   LevelInfo,
			Symbol:  symbol,
			Message: "large " + side + " trade",
			Fields:  map[string]interface{}{"price": p.Price, "volume": p.Volume},
		})
	}
}

func (r *StatsRules) OnVWAP(symbol string, p market.VWAPPoint) {
	r.mu.Lock()
	prev, seen := r.band[symbol]
	r.band[symbol] = p.BandPosition
	r.mu.Unlock()

	if !seen || prev == p.BandPosition || p.BandPosition == market.BandMiddle {
		return
	}
	_ = r.mgr.Send(Alert{
		Level:   LevelInfo,
		Symbol:  symbol,
		Message: fmt.Sprintf("price broke %s VWAP band", p.BandPosition),
		Fields: map[string]interface{}{
			"price": p.Price,
			"vwap":  p.VWAP,
			"upper": p.UpperBand,
			"lower": p.LowerBand,
		},
	})
}

func (r *StatsRules) OnDrop(string, string) {}

func (r *StatsRules) OnFunding(symbol string, f market.FundingRate) {
	key := symbol + "|" + f.Venue
	now := math.Abs(f.Rate) >= ExtremeFundingRate
	r.mu.Lock()
	was := r.extreme[key]
	r.extreme[key] = now
	r.mu.Unlock()

	if !now || was {
		return
	}
	_ = r.mgr.Send(Alert{
		Level:   LevelWarning,
		Symbol:  symbol,
		Message: fmt.Sprintf("extreme funding rate on %s", f.Venue),
		Fields:  map[string]interface{}{"venue": f.Venue, "rate": f.Rate},
	})
}

func (r *StatsRules) OnOpenInterest(string, market.OpenInterest) {}
