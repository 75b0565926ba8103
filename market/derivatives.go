package market

import (
	"math"
	"sort"
	"time"
)

// FundingRate 某交易所永续合约当前周期的资金费率。
type FundingRate struct {
	Venue           string
	Rate            float64
	NextFundingTime time.Time
	MarkPrice       float64
	Ts              time.Time
}

// Valid reports whether the reading can be folded. Rates may be negative.
func (f FundingRate) Valid() bool {
	return f.Venue != "" && !math.IsNaN(f.Rate) && !math.IsInf(f.Rate, 0)
}

// OpenInterest 某交易所的未平仓合约量（标的数量）。
type OpenInterest struct {
	Venue     string
	Contracts float64
	// Change 相对同一交易所上一次读数的变化；首个读数为 0。
	Change float64
	Ts     time.Time
}

func (o OpenInterest) Valid() bool {
	return o.Venue != "" && o.Contracts >= 0 && !math.IsNaN(o.Contracts) && !math.IsInf(o.Contracts, 0)
}

// DerivativesSnapshot holds the latest funding and open-interest reading per venue.
type DerivativesSnapshot struct {
	Funding      map[string]FundingRate
	OpenInterest map[string]OpenInterest
	// AvgFundingRate 各交易所资金费率的简单平均。
	AvgFundingRate    float64
	TotalOpenInterest float64
	UpdatedAt         time.Time
}

// Venues returns every venue with at least one reading, sorted.
func (s DerivativesSnapshot) Venues() []string {
	seen := make(map[string]struct{}, len(s.Funding)+len(s.OpenInterest))
	for v := range s.Funding {
		seen[v] = struct{}{}
	}
	for v := range s.OpenInterest {
		seen[v] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DerivativesTracker 保存每个交易所最新的资金费率与持仓量。非并发安全，由 Engine 加锁。
type DerivativesTracker struct {
	funding map[string]FundingRate
	oi      map[string]OpenInterest
	updated time.Time
}

func NewDerivativesTracker() *DerivativesTracker {
	return &DerivativesTracker{
		funding: make(map[string]FundingRate),
		oi:      make(map[string]OpenInterest),
	}
}

// IngestFunding replaces the venue's funding reading. Older readings are ignored.
func (d *DerivativesTracker) IngestFunding(f FundingRate) bool {
	if !f.Valid() {
		return false
	}
	if prev, ok := d.funding[f.Venue]; ok && f.Ts.Before(prev.Ts) {
		return false
	}
	d.funding[f.Venue] = f
	d.touch(f.Ts)
	return true
}

// IngestOpenInterest replaces the venue's reading and fills Change.
func (d *DerivativesTracker) IngestOpenInterest(o OpenInterest) (OpenInterest, bool) {
	if !o.Valid() {
		return OpenInterest{}, false
	}
	o.Change = 0
	if prev, ok := d.oi[o.Venue]; ok {
		if o.Ts.Before(prev.Ts) {
			return OpenInterest{}, false
		}
		o.Change = o.Contracts - prev.Contracts
	}
	d.oi[o.Venue] = o
	d.touch(o.Ts)
	return o, true
}

func (d *DerivativesTracker) touch(ts time.Time) {
	if ts.After(d.updated) {
		d.updated = ts
	}
}

// Snapshot 返回深拷贝。
func (d *DerivativesTracker) Snapshot() DerivativesSnapshot {
	s := DerivativesSnapshot{
		Funding:      make(map[string]FundingRate, len(d.funding)),
		OpenInterest: make(map[string]OpenInterest, len(d.oi)),
		UpdatedAt:    d.updated,
	}
	for v, f := range d.funding {
		s.Funding[v] = f
		s.AvgFundingRate += f.Rate
	}
	if len(d.funding) > 0 {
		s.AvgFundingRate /= float64(len(d.funding))
	}
	for v, o := range d.oi {
		s.OpenInterest[v] = o
		s.TotalOpenInterest += o.Contracts
	}
	return s
}

func (d *DerivativesTracker) Reset() {
	d.funding = make(map[string]FundingRate)
	d.oi = make(map[string]OpenInterest)
	d.updated = time.Time{}
}
