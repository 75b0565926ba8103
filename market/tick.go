package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Side 成交主动方向。
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// ParseSide 接受 buy/sell（大小写不敏感）。
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy", "b":
		return SideBuy, nil
	case "sell", "s":
		return SideSell, nil
	}
	return SideBuy, fmt.Errorf("unknown side %q", v)
}

// Tick represents a normalized trade tick.
type Tick struct {
	Ts    time.Time
	Price float64
	Qty   float64
	Side  Side
}

// Valid reports whether price and quantity are present and usable.
func (t Tick) Valid() bool {
	return usable(t.Price) && usable(t.Qty)
}

// Volume is the quote notional of the tick (price * qty).
func (t Tick) Volume() float64 {
	return t.Price * t.Qty
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
