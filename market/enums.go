package market

import "fmt"

// Trend 趋势/动量分类。
type Trend int

const (
	TrendNeutral Trend = iota
	TrendBullish
	TrendBearish
)

func (t Trend) String() string {
	switch t {
	case TrendBullish:
		return "bullish"
	case TrendBearish:
		return "bearish"
	default:
		return "neutral"
	}
}

func (t Trend) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Trend) UnmarshalText(b []byte) error {
	switch string(b) {
	case "bullish":
		*t = TrendBullish
	case "bearish":
		*t = TrendBearish
	case "neutral", "":
		*t = TrendNeutral
	default:
		return fmt.Errorf("unknown trend %q", b)
	}
	return nil
}

// classifyTrend returns bullish above +threshold, bearish below -threshold.
func classifyTrend(v, threshold float64) Trend {
	switch {
	case v > threshold:
		return TrendBullish
	case v < -threshold:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// BandPosition 价格相对 VWAP 带的位置。
type BandPosition int

const (
	BandMiddle BandPosition = iota
	BandUpper
	BandLower
)

func (p BandPosition) String() string {
	switch p {
	case BandUpper:
		return "upper"
	case BandLower:
		return "lower"
	default:
		return "middle"
	}
}

func (p BandPosition) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *BandPosition) UnmarshalText(b []byte) error {
	switch string(b) {
	case "upper":
		*p = BandUpper
	case "lower":
		*p = BandLower
	case "middle", "":
		*p = BandMiddle
	default:
		return fmt.Errorf("unknown band position %q", b)
	}
	return nil
}

func classifyBand(price, upper, lower float64) BandPosition {
	switch {
	case price > upper:
		return BandUpper
	case price < lower:
		return BandLower
	default:
		return BandMiddle
	}
}

// VWAPMode selects how the cumulative VWAP is folded.
type VWAPMode int

const (
	// VWAPRunning keeps Σ(price*volume) and Σvolume since reset.
	VWAPRunning VWAPMode = iota
	// VWAPLegacy reproduces the dashboard's window-weighted approximation.
	VWAPLegacy
)

func (m VWAPMode) String() string {
	if m == VWAPLegacy {
		return "legacy"
	}
	return "running"
}

func (m VWAPMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *VWAPMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running", "":
		*m = VWAPRunning
	case "legacy":
		*m = VWAPLegacy
	default:
		return fmt.Errorf("unknown vwap mode %q", b)
	}
	return nil
}
