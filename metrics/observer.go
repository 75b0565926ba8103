package metrics

import "market-stats-go/market"

// EngineObserver 将引擎输出写入 Prometheus。实现 market.Observer 与 market.DerivativesObserver。
type EngineObserver struct{}

func (EngineObserver) OnDelta(symbol string, p market.DeltaPoint, s market.StatsSnapshot) {
	Ingested.WithLabelValues(symbol, "trade").Inc()
	CumulativeDelta.WithLabelValues(symbol).Set(p.CumulativeDelta)
	ImbalanceRatio.WithLabelValues(symbol).Set(p.ImbalanceRatio)
	Strength.WithLabelValues(symbol).Set(s.Strength)
	Momentum.WithLabelValues(symbol).Set(trendValue(s.Momentum))
	VPIN.WithLabelValues(symbol).Set(s.VPIN)
}

func (EngineObserver) OnVWAP(symbol string, p market.VWAPPoint) {
	Ingested.WithLabelValues(symbol, "ticker").Inc()
	VWAP.WithLabelValues(symbol, "cumulative").Set(p.VWAP)
	VWAP.WithLabelValues(symbol, "anchored").Set(p.AnchoredVWAP)
	VWAP.WithLabelValues(symbol, "upper").Set(p.UpperBand)
	VWAP.WithLabelValues(symbol, "lower").Set(p.LowerBand)
	VWAPDeviation.WithLabelValues(symbol).Set(p.Deviation)
	BandPosition.WithLabelValues(symbol).Set(bandValue(p.BandPosition))
}

func (EngineObserver) OnDrop(symbol, reason string) {
	Dropped.WithLabelValues(symbol, reason).Inc()
}

func (EngineObserver) OnFunding(symbol string, f market.FundingRate) {
	Ingested.WithLabelValues(symbol, "funding").Inc()
	FundingRate.WithLabelValues(symbol, f.Venue).Set(f.Rate)
}

func (EngineObserver) OnOpenInterest(symbol string, o market.OpenInterest) {
	Ingested.WithLabelValues(symbol, "open_interest").Inc()
	OpenInterest.WithLabelValues(symbol, o.Venue).Set(o.Contracts)
}

func trendValue(t market.Trend) float64 {
	switch t {
	case market.TrendBullish:
		return 1
	case market.TrendBearish:
		return -1
	default:
		return 0
	}
}

func bandValue(p market.BandPosition) float64 {
	switch p {
	case market.BandUpper:
		return 1
	case market.BandLower:
		return -1
	default:
		return 0
	}
}
