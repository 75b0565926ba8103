package container

import (
	"go.uber.org/zap/zapcore"

	"market-stats-go/infrastructure/logger"
	"market-stats-go/market"
	"market-stats-go/monitor/logschema"
)

// multiObserver 依次转发给多个 Observer。
type multiObserver []market.Observer

func (m multiObserver) OnDelta(symbol string, p market.DeltaPoint, s market.StatsSnapshot) {
	for _, o := range m {
		o.OnDelta(symbol, p, s)
	}
}

func (m multiObserver) OnVWAP(symbol string, p market.VWAPPoint) {
	for _, o := range m {
		o.OnVWAP(symbol, p)
	}
}

func (m multiObserver) OnDrop(symbol, reason string) {
	for _, o := range m {
		o.OnDrop(symbol, reason)
	}
}

func (m multiObserver) OnFunding(symbol string, f market.FundingRate) {
	for _, o := range m {
		if d, ok := o.(market.DerivativesObserver); ok {
			d.OnFunding(symbol, f)
		}
	}
}

func (m multiObserver) OnOpenInterest(symbol string, oi market.OpenInterest) {
	for _, o := range m {
		if d, ok := o.(market.DerivativesObserver); ok {
			d.OnOpenInterest(symbol, oi)
		}
	}
}

// logObserver 以 debug 级别输出每次更新。
type logObserver struct {
	log *logger.Logger
}

func (l *logObserver) OnDelta(symbol string, p market.DeltaPoint, _ market.StatsSnapshot) {
	if !l.log.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.log.LogTick(symbol, map[string]interface{}{
		"price":           p.Price,
		"delta":           p.Delta,
		"cumulativeDelta": p.CumulativeDelta,
		"imbalanceRatio":  p.ImbalanceRatio,
		"largeTrade":      p.LargeTrade,
	})
}

func (l *logObserver) OnVWAP(symbol string, p market.VWAPPoint) {
	if !l.log.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	l.log.LogVWAP(symbol, map[string]interface{}{
		"price":        p.Price,
		"vwap":         p.VWAP,
		"anchoredVwap": p.AnchoredVWAP,
		"bandPosition": p.BandPosition.String(),
		"trend":        p.Trend.String(),
	})
}

func (l *logObserver) OnDrop(symbol, reason string) {
	l.log.LogEvent(zapcore.DebugLevel, logschema.EventTickDropped, map[string]interface{}{
		"symbol": symbol,
		"reason": reason,
	})
}

func (l *logObserver) OnFunding(symbol string, f market.FundingRate) {
	l.log.LogEvent(zapcore.DebugLevel, logschema.EventDerivatives, map[string]interface{}{
		"symbol":          symbol,
		"venue":           f.Venue,
		"kind":            "funding",
		"rate":            f.Rate,
		"nextFundingTime": f.NextFundingTime,
	})
}

func (l *logObserver) OnOpenInterest(symbol string, o market.OpenInterest) {
	l.log.LogEvent(zapcore.DebugLevel, logschema.EventDerivatives, map[string]interface{}{
		"symbol":    symbol,
		"venue":     o.Venue,
		"kind":      "open_interest",
		"contracts": o.Contracts,
		"change":    o.Change,
	})
}
