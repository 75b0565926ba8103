package market

import (
	"math"
	"testing"
)

func TestImbalanceRatio(t *testing.T) {
	tests := []struct {
		name       string
		buyVolume  float64
		sellVolume float64
		expected   float64
	}{
		{
			name:       "Equal volumes",
			buyVolume:  100,
			sellVolume: 100,
			expected:   0.5,
		},
		{
			name:       "More buy volume",
			buyVolume:  300,
			sellVolume: 100,
			expected:   0.75,
		},
		{
			name:       "More sell volume",
			buyVolume:  100,
			sellVolume: 300,
			expected:   0.25,
		},
		{
			name:       "Zero volumes",
			buyVolume:  0,
			sellVolume: 0,
			expected:   0.5,
		},
		{
			name:       "Only buys",
			buyVolume:  100,
			sellVolume: 0,
			expected:   1,
		},
		{
			name:       "Only sells",
			buyVolume:  0,
			sellVolume: 100,
			expected:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ImbalanceRatio(tt.buyVolume, tt.sellVolume)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ImbalanceRatio(%f, %f) = %f; expected %f",
					tt.buyVolume, tt.sellVolume, result, tt.expected)
			}
		})
	}
}

func TestImbalancePercentage(t *testing.T) {
	cases := map[float64]float64{
		0:    -100,
		0.25: -50,
		0.5:  0,
		1:    100,
	}
	for ratio, want := range cases {
		if got := ImbalancePercentage(ratio); math.Abs(got-want) > 1e-9 {
			t.Errorf("ImbalancePercentage(%f) = %f; expected %f", ratio, got, want)
		}
	}
}
