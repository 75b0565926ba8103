package market

import (
	"math"
	"time"
)

const (
	// DefaultWindowSize is the retained DeltaPoint/VWAPPoint history.
	DefaultWindowSize = 50
	// MaxWindowSize 窗口上限，更大的配置会被截断。
	MaxWindowSize = 50
	// StatsWindowSize is the sub-window used for stats and band stddev.
	StatsWindowSize = 20
	// ImbalanceWindowSize is the number of prior points folded into the imbalance ratio.
	ImbalanceWindowSize = 10

	// MomentumThreshold 价格差（绝对值）超过该值才判定为多/空动量。
	MomentumThreshold = 100.0
	strengthFloor     = 1000.0
	// DefaultLargeTradeValue 大单名义价值阈值。
	DefaultLargeTradeValue = 1000.0
)

// DeltaPoint is one accepted trade folded into the order-flow window.
type DeltaPoint struct {
	Ts              time.Time
	Price           float64
	Volume          float64
	BuyVolume       float64
	SellVolume      float64
	Delta           float64
	CumulativeDelta float64
	DeltaRate       float64
	ImbalanceRatio  float64
	Momentum        float64
	Strength        float64
	LargeTrade      bool
}

// StatsSnapshot 由最近 StatsWindowSize 个点计算出的汇总。
type StatsSnapshot struct {
	TotalDelta          float64
	AvgDelta            float64
	MaxDelta            float64
	MinDelta            float64
	ImbalanceRatio      float64
	ImbalancePercentage float64
	Momentum            Trend
	MomentumValue       float64
	Strength            float64
	LargeTrades         int
	Samples             int
	// VPIN 字段由 Engine 填充，ComputeStats 不计算。
	VPIN      float64
	VPINReady bool
	Toxic     bool
}

// OrderFlowTracker maintains the cumulative delta and the bounded DeltaPoint window.
type OrderFlowTracker struct {
	points          *Window[DeltaPoint]
	largeTradeValue float64
}

func NewOrderFlowTracker(windowSize int, largeTradeValue float64) *OrderFlowTracker {
	windowSize = clampWindow(windowSize)
	if largeTradeValue <= 0 {
		largeTradeValue = DefaultLargeTradeValue
	}
	return &OrderFlowTracker{
		points:          NewWindow[DeltaPoint](windowSize),
		largeTradeValue: largeTradeValue,
	}
}

func clampWindow(n int) int {
	if n <= 0 {
		return DefaultWindowSize
	}
	if n > MaxWindowSize {
		return MaxWindowSize
	}
	return n
}

// Ingest folds one tick into the window. Malformed ticks leave the state untouched.
func (o *OrderFlowTracker) Ingest(t Tick) (DeltaPoint, bool) {
	if !t.Valid() {
		return DeltaPoint{}, false
	}
	volume := t.Volume()
	p := DeltaPoint{
		Ts:         t.Ts,
		Price:      t.Price,
		Volume:     volume,
		LargeTrade: volume >= o.largeTradeValue,
	}
	if t.Side == SideBuy {
		p.BuyVolume = volume
	} else {
		p.SellVolume = volume
	}
	p.Delta = p.BuyVolume - p.SellVolume
	p.CumulativeDelta = p.Delta

	if prev, ok := o.points.Last(); ok {
		p.CumulativeDelta = prev.CumulativeDelta + p.Delta
		p.DeltaRate = p.Delta - prev.Delta
		p.Momentum = p.Price - prev.Price
	}

	recentBuy, recentSell := p.BuyVolume, p.SellVolume
	for _, q := range o.points.Tail(ImbalanceWindowSize) {
		recentBuy += q.BuyVolume
		recentSell += q.SellVolume
	}
	p.ImbalanceRatio = ImbalanceRatio(recentBuy, recentSell)
	p.Strength = math.Min(math.Abs(p.Delta)/math.Max(volume, strengthFloor)*100, 100)

	o.points.Push(p)
	return p, true
}

// Stats computes the snapshot over the current window.
func (o *OrderFlowTracker) Stats() StatsSnapshot {
	return ComputeStats(o.points.Tail(StatsWindowSize))
}

func (o *OrderFlowTracker) Points() []DeltaPoint { return o.points.Items() }

func (o *OrderFlowTracker) Len() int { return o.points.Len() }

func (o *OrderFlowTracker) Reset() { o.points.Reset() }

// ComputeStats 对最近 StatsWindowSize 个点做聚合；传入更长的序列时只取尾部。
func ComputeStats(points []DeltaPoint) StatsSnapshot {
	if len(points) > StatsWindowSize {
		points = points[len(points)-StatsWindowSize:]
	}
	if len(points) == 0 {
		return StatsSnapshot{ImbalanceRatio: 0.5}
	}
	latest := points[len(points)-1]
	s := StatsSnapshot{
		TotalDelta:     latest.CumulativeDelta,
		MaxDelta:       math.Inf(-1),
		MinDelta:       math.Inf(1),
		ImbalanceRatio: latest.ImbalanceRatio,
		MomentumValue:  latest.Momentum,
		Momentum:       classifyTrend(latest.Momentum, MomentumThreshold),
		Samples:        len(points),
	}
	var sumDelta, sumStrength float64
	for _, p := range points {
		sumDelta += p.Delta
		sumStrength += p.Strength
		s.MaxDelta = math.Max(s.MaxDelta, p.Delta)
		s.MinDelta = math.Min(s.MinDelta, p.Delta)
		if p.LargeTrade {
			s.LargeTrades++
		}
	}
	n := float64(len(points))
	s.AvgDelta = sumDelta / n
	s.Strength = sumStrength / n
	s.ImbalancePercentage = ImbalancePercentage(s.ImbalanceRatio)
	return s
}
