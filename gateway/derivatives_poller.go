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

// DerivativesReading 一次轮询得到的各交易所读数；失败的交易所被省略。
type DerivativesReading struct {
	Funding      []market.FundingRate
	OpenInterest []market.OpenInterest
}

// Empty 没有任何读数。
func (r DerivativesReading) Empty() bool {
	return len(r.Funding) == 0 && len(r.OpenInterest) == 0
}

type DerivativesHandler func(symbol string, r DerivativesReading)

// DerivativesPoller 定时轮询资金费率与持仓量。
type DerivativesPoller struct {
	Sources   []DerivativesSource
	Interval  time.Duration
	Limiter   *rate.Limiter
	EventSink EventSink
}

func NewDerivativesPoller(interval time.Duration, limiter *rate.Limiter, sources ...DerivativesSource) *DerivativesPoller {
	return &DerivativesPoller{
		Sources:  sources,
		Interval: interval,
		Limiter:  limiter,
	}
}

// Poll 并发请求每个交易所的两个接口；全部失败时返回错误。
func (p *DerivativesPoller) Poll(ctx context.Context, symbol string) (DerivativesReading, error) {
	var out DerivativesReading
	if len(p.Sources) == 0 {
		return out, errors.New("no derivatives sources")
	}
	symbol = strings.ToUpper(symbol)
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []error
	)
	fail := func(venue string, err error) {
		metrics.FeedErrors.WithLabelValues(venue).Inc()
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	for _, src := range p.Sources {
		wg.Add(2)
		go func(src DerivativesSource) {
			defer wg.Done()
			if err := p.wait(ctx); err != nil {
				fail(src.Venue(), err)
				return
			}
			f, err := src.FetchFunding(ctx, symbol)
			if err != nil {
				fail(src.Venue(), err)
				return
			}
			mu.Lock()
			out.Funding = append(out.Funding, f)
			mu.Unlock()
		}(src)
		go func(src DerivativesSource) {
			defer wg.Done()
			if err := p.wait(ctx); err != nil {
				fail(src.Venue(), err)
				return
			}
			oi, err := src.FetchOpenInterest(ctx, symbol)
			if err != nil {
				fail(src.Venue(), err)
				return
			}
			mu.Lock()
			out.OpenInterest = append(out.OpenInterest, oi)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	if out.Empty() {
		return out, fmt.Errorf("all derivatives sources failed: %w", errors.Join(errs...))
	}
	if len(errs) > 0 && p.EventSink != nil {
		p.EventSink("derivatives", "partial", map[string]interface{}{
			"symbol": symbol,
			"error":  errors.Join(errs...).Error(),
		})
	}
	return out, nil
}

func (p *DerivativesPoller) wait(ctx context.Context) error {
	if p.Limiter == nil {
		return nil
	}
	return p.Limiter.Wait(ctx)
}

// Subscribe 立即轮询一次，之后每个 Interval 轮询并回调。
func (p *DerivativesPoller) Subscribe(ctx context.Context, symbol string, fn DerivativesHandler) (CancelFunc, error) {
	if fn == nil {
		return nil, errors.New("derivatives handler required")
	}
	if strings.TrimSpace(symbol) == "" {
		return nil, errors.New("symbol required")
	}
	if len(p.Sources) == 0 {
		return nil, errors.New("no derivatives sources")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return pollEvery(ctx, p.Interval, func(ctx context.Context) {
		r, err := p.Poll(ctx, symbol)
		if err == nil {
			fn(symbol, r)
		} else if ctx.Err() == nil && p.EventSink != nil {
			p.EventSink("derivatives", "error", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
		}
	}), nil
}
