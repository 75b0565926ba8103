package market

import "math"

const (
	// DefaultVPINBucketVolume 每个 VPIN 桶的目标名义成交额。
	DefaultVPINBucketVolume = 50_000.0
	DefaultVPINBuckets      = 50
	DefaultToxicThreshold   = 0.4
)

// VolumeBucket represents a volume bucket for VPIN calculation
type VolumeBucket struct {
	BuyVolume   float64
	SellVolume  float64
	TotalVolume float64
}

// VPINConfig sizes the volume buckets.
type VPINConfig struct {
	BucketVolume   float64
	MaxBuckets     int
	ToxicThreshold float64
}

func (c VPINConfig) withDefaults() VPINConfig {
	if c.BucketVolume <= 0 {
		c.BucketVolume = DefaultVPINBucketVolume
	}
	if c.MaxBuckets <= 0 {
		c.MaxBuckets = DefaultVPINBuckets
	}
	if c.ToxicThreshold <= 0 {
		c.ToxicThreshold = DefaultToxicThreshold
	}
	return c
}

// VPINCalculator calculates Volume-Synchronized Probability of Informed Trading
// from the signed volume of accepted ticks. Not safe for concurrent use; the
// owning Engine serialises access.
type VPINCalculator struct {
	cfg     VPINConfig
	buckets *Window[VolumeBucket]
	current VolumeBucket
	vpin    float64
}

func NewVPINCalculator(cfg VPINConfig) *VPINCalculator {
	cfg = cfg.withDefaults()
	return &VPINCalculator{
		cfg:     cfg,
		buckets: NewWindow[VolumeBucket](cfg.MaxBuckets),
	}
}

// Add folds one tick's buy/sell volume into the current bucket.
func (v *VPINCalculator) Add(buyVolume, sellVolume float64) {
	v.current.BuyVolume += buyVolume
	v.current.SellVolume += sellVolume
	v.current.TotalVolume += buyVolume + sellVolume

	if v.current.TotalVolume >= v.cfg.BucketVolume {
		v.buckets.Push(v.current)
		v.current = VolumeBucket{}
		v.recalculate()
	}
}

func (v *VPINCalculator) recalculate() {
	totalImbalance := 0.0
	totalVolume := 0.0
	for _, bucket := range v.buckets.Tail(v.buckets.Len()) {
		totalImbalance += math.Abs(bucket.BuyVolume - bucket.SellVolume)
		totalVolume += bucket.TotalVolume
	}
	if totalVolume > 0 {
		v.vpin = totalImbalance / totalVolume
	} else {
		v.vpin = 0
	}
}

// Value returns the current VPIN in [0,1].
func (v *VPINCalculator) Value() float64 { return v.vpin }

// IsToxic checks if the current VPIN indicates toxic flow
func (v *VPINCalculator) IsToxic() bool { return v.vpin > v.cfg.ToxicThreshold }

// IsReady 至少填满一半的桶才认为可用。
func (v *VPINCalculator) IsReady() bool {
	return v.buckets.Len() >= v.cfg.MaxBuckets/2
}

func (v *VPINCalculator) Reset() {
	v.buckets.Reset()
	v.current = VolumeBucket{}
	v.vpin = 0
}
