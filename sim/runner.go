package sim

import (
	"context"
	"errors"

	"market-stats-go/market"
)

// Runner 用生成器驱动 market.Service，不连接真实交易所。
type Runner struct {
	Symbol string
	Svc    *market.Service
	Gen    *Generator
	// TickerEvery 每多少笔成交推送一次行情快照；<=0 表示不推送。
	TickerEvery int
}

// Result 一次模拟的计数与最终快照。
type Result struct {
	Trades   int
	Tickers  int
	Dropped  int
	Snapshot market.EngineSnapshot
}

// Step 推送一笔成交，必要时附带一次快照。
func (r *Runner) Step(i int) (trade, ticker bool, err error) {
	if r.Svc == nil || r.Gen == nil {
		return false, false, errors.New("runner not initialized")
	}
	trade = r.Svc.OnTrade(r.Symbol, r.Gen.NextTick())
	if r.TickerEvery > 0 && (i+1)%r.TickerEvery == 0 {
		ticker = r.Svc.OnTicker(r.Symbol, r.Gen.NextSnapshot())
	}
	return trade, ticker, nil
}

// Run 执行 n 步，ctx 取消时提前返回已完成部分。
func (r *Runner) Run(ctx context.Context, n int) (Result, error) {
	var res Result
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return r.finish(res), err
		}
		trade, ticker, err := r.Step(i)
		if err != nil {
			return res, err
		}
		if trade {
			res.Trades++
		} else {
			res.Dropped++
		}
		if ticker {
			res.Tickers++
		}
	}
	return r.finish(res), nil
}

func (r *Runner) finish(res Result) Result {
	if snap, err := r.Svc.Snapshot(r.Symbol); err == nil {
		res.Snapshot = snap
	}
	return res
}
