package market

import (
	"math"
	"time"
)

const (
	// DefaultBandMultiplier 默认带宽（标准差倍数）。
	DefaultBandMultiplier = 2.0
	// SlopeThreshold separates a flat VWAP from a trending one.
	SlopeThreshold = 0.01
)

// VenueQuote is one venue's contribution to a ticker snapshot.
type VenueQuote struct {
	Price  float64
	Volume float64
}

// TickerSnapshot 多个交易所同一时刻的报价/成交量。
type TickerSnapshot struct {
	Ts     time.Time
	Venues map[string]VenueQuote
}

// VWAPPoint is one ticker snapshot folded into the VWAP window.
type VWAPPoint struct {
	Ts           time.Time
	Price        float64
	Volume       float64
	VWAP         float64
	AnchoredVWAP float64
	UpperBand    float64
	LowerBand    float64
	Deviation    float64
	Slope        float64
	BandPosition BandPosition
	Trend        Trend
	Venues       int
}

// VWAPConfig controls anchoring, band width and the cumulative fold.
type VWAPConfig struct {
	AnchorType           AnchorType
	CustomAnchor         time.Time
	BandStdDevMultiplier float64
	Mode                 VWAPMode
	// Venues 为空时使用快照中的全部交易所。
	Venues   []string
	Location *time.Location
}

func (c VWAPConfig) withDefaults() VWAPConfig {
	if c.BandStdDevMultiplier <= 0 {
		c.BandStdDevMultiplier = DefaultBandMultiplier
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

func (c VWAPConfig) anchorAt(ts time.Time) time.Time {
	return AnchorStart(c.AnchorType, ts, c.Location, c.CustomAnchor)
}

// VWAPTracker maintains cumulative and anchored VWAP plus deviation bands.
type VWAPTracker struct {
	cfg    VWAPConfig
	clock  Clock
	points *Window[VWAPPoint]

	sumPV float64
	sumV  float64

	anchor      time.Time
	anchorValid bool
	anchorPV    float64
	anchorV     float64
}

func NewVWAPTracker(windowSize int, cfg VWAPConfig) *VWAPTracker {
	return &VWAPTracker{
		cfg:    cfg.withDefaults(),
		clock:  SystemClock,
		points: NewWindow[VWAPPoint](clampWindow(windowSize)),
	}
}

// SetConfig swaps anchor/band parameters; the window and running totals are kept.
// 锚点累计量只在计算出的锚点起点变化时重建，见 accumulate。
func (v *VWAPTracker) SetConfig(cfg VWAPConfig) {
	v.cfg = cfg.withDefaults()
}

func (v *VWAPTracker) Config() VWAPConfig { return v.cfg }

// aggregate sums the configured venues. Venues without a usable price are skipped.
func (v *VWAPTracker) aggregate(snap TickerSnapshot) (totalVolume, weighted float64, venues int) {
	accept := func(string) bool { return true }
	if len(v.cfg.Venues) > 0 {
		allowed := make(map[string]struct{}, len(v.cfg.Venues))
		for _, name := range v.cfg.Venues {
			allowed[name] = struct{}{}
		}
		accept = func(name string) bool {
			_, ok := allowed[name]
			return ok
		}
	}
	for name, q := range snap.Venues {
		if !accept(name) || !usable(q.Price) {
			continue
		}
		vol := q.Volume
		if vol < 0 || math.IsNaN(vol) || math.IsInf(vol, 0) {
			vol = 0
		}
		totalVolume += vol
		weighted += q.Price * vol
		venues++
	}
	return totalVolume, weighted, venues
}

// Ingest folds one snapshot. A snapshot with zero total volume is ignored.
func (v *VWAPTracker) Ingest(snap TickerSnapshot) (VWAPPoint, bool) {
	totalVolume, weighted, venues := v.aggregate(snap)
	if totalVolume <= 0 {
		return VWAPPoint{}, false
	}
	ts := snap.Ts
	if ts.IsZero() {
		ts = v.clock.Now()
	}
	price := weighted / totalVolume
	p := VWAPPoint{
		Ts:     ts,
		Price:  price,
		Volume: totalVolume,
		Venues: venues,
	}

	anchor := v.cfg.anchorAt(ts)
	// 两种模式共用累计量，模式切换后 running 仍是全部数据的 Σpv/Σv
	v.accumulate(ts, anchor, weighted, totalVolume)
	if v.cfg.Mode == VWAPLegacy {
		p.VWAP, p.AnchoredVWAP = v.legacyFold(ts, anchor, weighted, totalVolume)
	} else {
		p.VWAP, p.AnchoredVWAP = v.runningValues()
	}

	std := v.deviationStdDev(price - p.VWAP)
	p.UpperBand = p.VWAP + std*v.cfg.BandStdDevMultiplier
	p.LowerBand = p.VWAP - std*v.cfg.BandStdDevMultiplier
	if p.VWAP != 0 {
		p.Deviation = (price - p.VWAP) / p.VWAP * 100
	}
	if prev, ok := v.points.Last(); ok {
		p.Slope = p.VWAP - prev.VWAP
	}
	p.BandPosition = classifyBand(price, p.UpperBand, p.LowerBand)
	p.Trend = classifyTrend(p.Slope, SlopeThreshold)

	v.points.Push(p)
	return p, true
}

// accumulate folds one accepted snapshot into the cumulative and anchored totals.
func (v *VWAPTracker) accumulate(ts, anchor time.Time, pv, vol float64) {
	v.sumPV += pv
	v.sumV += vol

	if !v.anchorValid || !anchor.Equal(v.anchor) {
		v.anchor = anchor
		v.anchorValid = true
		v.anchorPV, v.anchorV = 0, 0
		// 用窗口内仍保留的点重建锚点累计量
		for _, q := range v.points.Tail(v.points.Len()) {
			if !q.Ts.Before(anchor) {
				v.anchorPV += q.Price * q.Volume
				v.anchorV += q.Volume
			}
		}
	}
	if !ts.Before(anchor) {
		v.anchorPV += pv
		v.anchorV += vol
	}
}

// runningValues 真实的累计成交量加权均价。
func (v *VWAPTracker) runningValues() (vwap, anchored float64) {
	vwap = v.sumPV / v.sumV
	anchored = vwap
	if v.anchorV > 0 {
		anchored = v.anchorPV / v.anchorV
	}
	return vwap, anchored
}

// legacyFold reproduces the dashboard approximation: every prior retained point
// contributes vwap*volume*priorCount to the numerator.
func (v *VWAPTracker) legacyFold(ts, anchor time.Time, pv, vol float64) (vwap, anchored float64) {
	prior := v.points.Tail(v.points.Len())
	vwap = legacyVWAP(prior, pv, vol)

	sinceAnchor := make([]VWAPPoint, 0, len(prior))
	for _, q := range prior {
		if !q.Ts.Before(anchor) {
			sinceAnchor = append(sinceAnchor, q)
		}
	}
	if ts.Before(anchor) {
		pv, vol = 0, 0
	}
	anchored = vwap
	if len(sinceAnchor) > 0 || vol > 0 {
		anchored = legacyVWAP(sinceAnchor, pv, vol)
	}
	return vwap, anchored
}

func legacyVWAP(prior []VWAPPoint, pv, vol float64) float64 {
	n := float64(len(prior))
	num, den := pv, vol
	for _, q := range prior {
		num += q.VWAP * q.Volume * n
		den += q.Volume
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// deviationStdDev 最近 StatsWindowSize 个点（含当前点）price-vwap 的总体标准差。
func (v *VWAPTracker) deviationStdDev(current float64) float64 {
	prior := v.points.Tail(StatsWindowSize - 1)
	devs := make([]float64, 0, len(prior)+1)
	for _, q := range prior {
		devs = append(devs, q.Price-q.VWAP)
	}
	devs = append(devs, current)
	return populationStdDev(devs)
}

func populationStdDev(xs []float64) float64 {
	if len(xs) < 1 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	sumSq := 0.0
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func (v *VWAPTracker) Points() []VWAPPoint { return v.points.Items() }

func (v *VWAPTracker) Last() (VWAPPoint, bool) { return v.points.Last() }

func (v *VWAPTracker) Len() int { return v.points.Len() }

// Reset 清空窗口与全部累计量。
func (v *VWAPTracker) Reset() {
	v.points.Reset()
	v.sumPV, v.sumV = 0, 0
	v.anchor = time.Time{}
	v.anchorValid = false
	v.anchorPV, v.anchorV = 0, 0
}
