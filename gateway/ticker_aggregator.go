package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"market-stats-go/market"
	"market-stats-go/metrics"
)

// TickerHandler 接收合并后的多交易所快照。
type TickerHandler func(symbol string, snap market.TickerSnapshot)

// TickerAggregator 定时轮询所有行情源并合并为 TickerSnapshot。
type TickerAggregator struct {
	Sources  []TickerSource
	Interval time.Duration
	// Limiter 为空时不限速；非空时每次 REST 请求前 Wait。
	Limiter   *rate.Limiter
	EventSink EventSink
	Now       func() time.Time
}

func NewTickerAggregator(interval time.Duration, limiter *rate.Limiter, sources ...TickerSource) *TickerAggregator {
	return &TickerAggregator{
		Sources:  sources,
		Interval: interval,
		Limiter:  limiter,
	}
}

func (a *TickerAggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// Poll 并发请求所有源；失败的交易所从快照中省略，全部失败时返回错误。
func (a *TickerAggregator) Poll(ctx context.Context, symbol string) (market.TickerSnapshot, error) {
	if len(a.Sources) == 0 {
		return market.TickerSnapshot{}, errors.New("no ticker sources")
	}
	symbol = strings.ToUpper(symbol)
	snap := market.TickerSnapshot{
		Ts:     a.now(),
		Venues: make(map[string]market.VenueQuote, len(a.Sources)),
	}
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	for _, src := range a.Sources {
		wg.Add(1)
		go func(src TickerSource) {
			defer wg.Done()
			q, err := a.fetch(ctx, src, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.FeedErrors.WithLabelValues(src.Venue()).Inc()
				errs = append(errs, err)
				return
			}
			snap.Venues[src.Venue()] = q
		}(src)
	}
	wg.Wait()
	if len(snap.Venues) == 0 {
		return snap, fmt.Errorf("all ticker sources failed: %w", errors.Join(errs...))
	}
	if len(errs) > 0 && a.EventSink != nil {
		a.EventSink("ticker", "partial", map[string]interface{}{
			"symbol": symbol,
			"error":  errors.Join(errs...).Error(),
		})
	}
	return snap, nil
}

func (a *TickerAggregator) fetch(ctx context.Context, src TickerSource, symbol string) (market.VenueQuote, error) {
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return market.VenueQuote{}, err
		}
	}
	return src.FetchTicker(ctx, symbol)
}

// Subscribe 立即轮询一次，之后每个 Interval 轮询并回调。
func (a *TickerAggregator) Subscribe(ctx context.Context, symbol string, fn TickerHandler) (CancelFunc, error) {
	if fn == nil {
		return nil, errors.New("ticker handler required")
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("symbol required")
	}
	if len(a.Sources) == 0 {
		return nil, errors.New("no ticker sources")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return pollEvery(ctx, a.Interval, func(ctx context.Context) {
		snap, err := a.Poll(ctx, symbol)
		if err == nil {
			fn(symbol, snap)
		} else if ctx.Err() == nil && a.EventSink != nil {
			a.EventSink("ticker", "error", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
		}
	}), nil
}

// pollEvery 立即执行一次 poll，之后每个 interval 执行，直到取消。
func pollEvery(ctx context.Context, interval time.Duration, poll func(ctx context.Context)) CancelFunc {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			poll(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
