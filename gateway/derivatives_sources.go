package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"market-stats-go/market"
)

// DerivativesSource 返回永续合约的资金费率与持仓量。
type DerivativesSource interface {
	Venue() string
	FetchFunding(ctx context.Context, symbol string) (market.FundingRate, error)
	FetchOpenInterest(ctx context.Context, symbol string) (market.OpenInterest, error)
}

// bybitOpenInterestInterval 是 /v5/market/open-interest 必填的统计周期。
const bybitOpenInterestInterval = "5min"

// FetchFunding 使用 /fapi/v1/premiumIndex 的 lastFundingRate（当前周期预估）。
func (b *BinanceFuturesTicker) FetchFunding(ctx context.Context, symbol string) (market.FundingRate, error) {
	symbol = strings.ToUpper(symbol)
	res, err := b.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.FundingRate{}, fmt.Errorf("binance premiumIndex %s: %w", symbol, err)
	}
	for _, p := range res {
		if p == nil || !strings.EqualFold(p.Symbol, symbol) {
			continue
		}
		rate, err := parseDecimal(p.LastFundingRate)
		if err != nil {
			return market.FundingRate{}, fmt.Errorf("binance premiumIndex %s: funding rate %q: %w", symbol, p.LastFundingRate, err)
		}
		f := market.FundingRate{
			Venue:           VenueBinanceFutures,
			Rate:            rate,
			NextFundingTime: msTime(p.NextFundingTime),
			Ts:              tsOrNow(p.Time),
		}
		if mark, err := parseDecimal(p.MarkPrice); err == nil {
			f.MarkPrice = mark
		}
		return f, nil
	}
	return market.FundingRate{}, fmt.Errorf("binance premiumIndex %s: symbol not in response", symbol)
}

func (b *BinanceFuturesTicker) FetchOpenInterest(ctx context.Context, symbol string) (market.OpenInterest, error) {
	symbol = strings.ToUpper(symbol)
	res, err := b.client.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.OpenInterest{}, fmt.Errorf("binance openInterest %s: %w", symbol, err)
	}
	oi, err := parseDecimal(res.OpenInterest)
	if err != nil {
		return market.OpenInterest{}, fmt.Errorf("binance openInterest %s: %q: %w", symbol, res.OpenInterest, err)
	}
	return market.OpenInterest{Venue: VenueBinanceFutures, Contracts: oi, Ts: tsOrNow(res.Time)}, nil
}

// FetchFunding 取 linear tickers 中的 fundingRate/nextFundingTime。
func (b *BybitTicker) FetchFunding(ctx context.Context, symbol string) (market.FundingRate, error) {
	symbol = strings.ToUpper(symbol)
	item, err := b.linearTicker(ctx, symbol)
	if err != nil {
		return market.FundingRate{}, err
	}
	rate, err := parseDecimal(item.FundingRate)
	if err != nil {
		return market.FundingRate{}, fmt.Errorf("bybit tickers %s: funding rate %q: %w", symbol, item.FundingRate, err)
	}
	f := market.FundingRate{
		Venue: VenueBybit,
		Rate:  rate,
		Ts:    time.Now().UTC(),
	}
	if next, err := strconv.ParseInt(item.NextFundingTime, 10, 64); err == nil {
		f.NextFundingTime = msTime(next)
	}
	if mark, err := parseDecimal(item.MarkPrice); err == nil {
		f.MarkPrice = mark
	}
	return f, nil
}

type bybitOpenInterestResult struct {
	Symbol string `json:"symbol"`
	List   []struct {
		OpenInterest string `json:"openInterest"`
		Timestamp    string `json:"timestamp"`
	} `json:"list"`
}

// FetchOpenInterest 取 /v5/market/open-interest 最新一条（列表按时间倒序）。
func (b *BybitTicker) FetchOpenInterest(ctx context.Context, symbol string) (market.OpenInterest, error) {
	symbol = strings.ToUpper(symbol)
	params := map[string]interface{}{
		"category":     "linear",
		"symbol":       symbol,
		"intervalTime": bybitOpenInterestInterval,
		"limit":        "1",
	}
	resp, err := b.client.NewUtaBybitServiceWithParams(params).GetOpenInterests(ctx)
	if err != nil {
		return market.OpenInterest{}, fmt.Errorf("bybit open-interest %s: %w", symbol, err)
	}
	var result bybitOpenInterestResult
	if err := decodeBybitResult(resp, &result); err != nil {
		return market.OpenInterest{}, fmt.Errorf("bybit open-interest %s: %w", symbol, err)
	}
	if len(result.List) == 0 {
		return market.OpenInterest{}, fmt.Errorf("bybit open-interest %s: empty list", symbol)
	}
	latest := result.List[0]
	oi, err := parseDecimal(latest.OpenInterest)
	if err != nil {
		return market.OpenInterest{}, fmt.Errorf("bybit open-interest %s: %q: %w", symbol, latest.OpenInterest, err)
	}
	out := market.OpenInterest{Venue: VenueBybit, Contracts: oi, Ts: time.Now().UTC()}
	if ms, err := strconv.ParseInt(latest.Timestamp, 10, 64); err == nil {
		out.Ts = tsOrNow(ms)
	}
	return out, nil
}

// msTime 毫秒时间戳转 UTC；<=0 返回零值。
func msTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// tsOrNow 交易所未给出时间戳时使用本地时间。
func tsOrNow(ms int64) time.Time {
	if ms <= 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}

// BuildDerivativesSources 与 BuildTickerSources 相同的交易所列表语义。
func BuildDerivativesSources(venues []string, binanceURL, bybitURL string, httpClient *http.Client) ([]DerivativesSource, error) {
	out := make([]DerivativesSource, 0, len(venues))
	for _, v := range venues {
		switch v {
		case VenueBinanceFutures:
			out = append(out, NewBinanceFuturesTicker(binanceURL, httpClient))
		case VenueBybit:
			out = append(out, NewBybitTicker(bybitURL, httpClient))
		default:
			return nil, fmt.Errorf("unknown derivatives venue %q", v)
		}
	}
	return out, nil
}
