package market

import (
	"testing"
	"time"
)

func BenchmarkEngineIngestTrade(b *testing.B) {
	e := NewEngine("BTCUSDT", DefaultEngineConfig())
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := SideBuy
		if i%3 == 0 {
			side = SideSell
		}
		e.IngestTrade(Tick{Ts: ts.Add(time.Duration(i) * time.Millisecond), Price: 100 + float64(i%50)*0.1, Qty: 1, Side: side})
	}
}

func BenchmarkEngineIngestVWAPTick(b *testing.B) {
	e := NewEngine("BTCUSDT", DefaultEngineConfig())
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.IngestVWAPTick(TickerSnapshot{
			Ts: ts.Add(time.Duration(i) * time.Second),
			Venues: map[string]VenueQuote{
				"binance_futures": {Price: 100 + float64(i%20)*0.1, Volume: 10},
				"bybit":           {Price: 100.05, Volume: 8},
			},
		})
	}
}

func BenchmarkEngineSnapshot(b *testing.B) {
	e := NewEngine("BTCUSDT", DefaultEngineConfig())
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultWindowSize; i++ {
		e.IngestTrade(Tick{Ts: ts, Price: 100, Qty: 1, Side: SideBuy})
		e.IngestVWAPTick(TickerSnapshot{Ts: ts, Venues: map[string]VenueQuote{"x": {Price: 100, Volume: 1}}})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Snapshot()
	}
}
