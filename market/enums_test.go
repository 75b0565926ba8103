package market

import "testing"

func TestTrendText(t *testing.T) {
	for _, tr := range []Trend{TrendNeutral, TrendBullish, TrendBearish} {
		b, _ := tr.MarshalText()
		var back Trend
		if err := back.UnmarshalText(b); err != nil || back != tr {
			t.Fatalf("trend %s did not survive text form: %v", tr, err)
		}
	}
	var tr Trend
	if err := tr.UnmarshalText([]byte("sideways")); err == nil {
		t.Fatalf("expected error for unknown trend")
	}
}

func TestClassifyBand(t *testing.T) {
	if classifyBand(11, 10, 5) != BandUpper {
		t.Fatalf("expected upper")
	}
	if classifyBand(4, 10, 5) != BandLower {
		t.Fatalf("expected lower")
	}
	if classifyBand(10, 10, 5) != BandMiddle || classifyBand(5, 10, 5) != BandMiddle {
		t.Fatalf("band edges are middle")
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("BUY"); err != nil || s != SideBuy {
		t.Fatalf("unexpected %v %v", s, err)
	}
	if s, err := ParseSide("sell"); err != nil || s != SideSell {
		t.Fatalf("unexpected %v %v", s, err)
	}
	if _, err := ParseSide("hold"); err == nil {
		t.Fatalf("expected error")
	}
}
