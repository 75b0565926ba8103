package gateway

import (
	"market-stats-go/market"
)

// MarketDataHandler 将成交/行情快照推送给 market.Service。
type MarketDataHandler struct {
	Svc *market.Service
}

func (h *MarketDataHandler) OnTrade(symbol string, t market.Tick) {
	if h.Svc != nil {
		h.Svc.OnTrade(symbol, t)
	}
}

func (h *MarketDataHandler) OnTicker(symbol string, snap market.TickerSnapshot) {
	if h.Svc != nil {
		h.Svc.OnTicker(symbol, snap)
	}
}

// OnDerivatives 逐条下发资金费率与持仓量读数。
func (h *MarketDataHandler) OnDerivatives(symbol string, r DerivativesReading) {
	if h.Svc == nil {
		return
	}
	for _, f := range r.Funding {
		h.Svc.OnFunding(symbol, f)
	}
	for _, oi := range r.OpenInterest {
		h.Svc.OnOpenInterest(symbol, oi)
	}
}
