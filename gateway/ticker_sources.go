package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	bybit "github.com/bybit-exchange/bybit.go.api"

	"market-stats-go/market"
)

// 交易所名，与 config.Venue* 保持一致。
const (
	VenueBinanceFutures = "binance_futures"
	VenueBybit          = "bybit"
)

// TickerSource 返回某交易所某合约的最新价与 24h 成交量。
type TickerSource interface {
	Venue() string
	FetchTicker(ctx context.Context, symbol string) (market.VenueQuote, error)
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// BinanceFuturesTicker 通过 /fapi/v1/ticker/24hr 获取 USDT 合约行情。
type BinanceFuturesTicker struct {
	client *futures.Client
}

func NewBinanceFuturesTicker(baseURL string, httpClient *http.Client) *BinanceFuturesTicker {
	client := futures.NewClient("", "")
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	if baseURL != "" {
		client.SetApiEndpoint(strings.TrimRight(baseURL, "/"))
	}
	return &BinanceFuturesTicker{client: client}
}

func (b *BinanceFuturesTicker) Venue() string { return VenueBinanceFutures }

func (b *BinanceFuturesTicker) FetchTicker(ctx context.Context, symbol string) (market.VenueQuote, error) {
	symbol = strings.ToUpper(symbol)
	stats, err := b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.VenueQuote{}, fmt.Errorf("binance 24hr %s: %w", symbol, err)
	}
	for _, s := range stats {
		if s == nil || !strings.EqualFold(s.Symbol, symbol) {
			continue
		}
		return quoteFromStrings(s.LastPrice, s.Volume)
	}
	return market.VenueQuote{}, fmt.Errorf("binance 24hr %s: symbol not in response", symbol)
}

// BybitTicker 通过 v5 /market/tickers（category=linear）获取行情。
type BybitTicker struct {
	client *bybit.Client
}

func NewBybitTicker(baseURL string, httpClient *http.Client) *BybitTicker {
	if baseURL == "" {
		baseURL = "https://api.bybit.com"
	}
	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(strings.TrimRight(baseURL, "/")))
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &BybitTicker{client: client}
}

func (b *BybitTicker) Venue() string { return VenueBybit }

type bybitTickerItem struct {
	Symbol          string `json:"symbol"`
	LastPrice       string `json:"lastPrice"`
	Volume24h       string `json:"volume24h"`
	MarkPrice       string `json:"markPrice"`
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

type bybitTickerResult struct {
	Category string            `json:"category"`
	List     []bybitTickerItem `json:"list"`
}

// linearTicker 请求 v5 /market/tickers 并返回 symbol 对应的条目。
func (b *BybitTicker) linearTicker(ctx context.Context, symbol string) (bybitTickerItem, error) {
	params := map[string]interface{}{
		"category": "linear",
		"symbol":   symbol,
	}
	resp, err := b.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return bybitTickerItem{}, fmt.Errorf("bybit tickers %s: %w", symbol, err)
	}
	var result bybitTickerResult
	if err := decodeBybitResult(resp, &result); err != nil {
		return bybitTickerItem{}, fmt.Errorf("bybit tickers %s: %w", symbol, err)
	}
	for _, item := range result.List {
		if strings.EqualFold(item.Symbol, symbol) {
			return item, nil
		}
	}
	return bybitTickerItem{}, fmt.Errorf("bybit tickers %s: symbol not in response", symbol)
}

func (b *BybitTicker) FetchTicker(ctx context.Context, symbol string) (market.VenueQuote, error) {
	item, err := b.linearTicker(ctx, strings.ToUpper(symbol))
	if err != nil {
		return market.VenueQuote{}, err
	}
	return quoteFromStrings(item.LastPrice, item.Volume24h)
}

// decodeBybitResult 检查 retCode 并把 Result 解码到 out。
func decodeBybitResult(resp *bybit.ServerResponse, out interface{}) error {
	if resp == nil {
		return fmt.Errorf("empty response")
	}
	if resp.RetCode != 0 {
		return fmt.Errorf("retCode=%d %s", resp.RetCode, resp.RetMsg)
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func quoteFromStrings(price, volume string) (market.VenueQuote, error) {
	p, err := parseDecimal(price)
	if err != nil {
		return market.VenueQuote{}, fmt.Errorf("price %q: %w", price, err)
	}
	v, err := parseDecimal(volume)
	if err != nil {
		return market.VenueQuote{}, fmt.Errorf("volume %q: %w", volume, err)
	}
	return market.VenueQuote{Price: p, Volume: v}, nil
}

// BuildTickerSources 按配置的交易所列表构建行情源；未知名字返回错误。
func BuildTickerSources(venues []string, binanceURL, bybitURL string, httpClient *http.Client) ([]TickerSource, error) {
	out := make([]TickerSource, 0, len(venues))
	for _, v := range venues {
		switch v {
		case VenueBinanceFutures:
			out = append(out, NewBinanceFuturesTicker(binanceURL, httpClient))
		case VenueBybit:
			out = append(out, NewBybitTicker(bybitURL, httpClient))
		default:
			return nil, fmt.Errorf("unknown ticker venue %q", v)
		}
	}
	return out, nil
}
