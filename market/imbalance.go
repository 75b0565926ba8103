package market

import "math"

// ImbalanceRatio returns the buy share of recent volume: buy / (buy + sell).
// With no volume observed the book is treated as balanced (0.5).
func ImbalanceRatio(buyVolume float64, sellVolume float64) float64 {
	total := buyVolume + sellVolume
	if total <= 0 || math.IsNaN(total) {
		return 0.5
	}
	return buyVolume / total
}

// ImbalancePercentage maps a ratio in [0,1] onto [-100,100].
func ImbalancePercentage(ratio float64) float64 {
	return (ratio - 0.5) * 200
}
