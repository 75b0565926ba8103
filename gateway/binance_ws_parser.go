package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"market-stats-go/market"
)

// CombinedMessage 对应 binance combined stream 包装。
type CombinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// AggTradeEvent 提取 aggTrade 消息的核心字段。
type AggTradeEvent struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
	// 买方是挂单方，即主动卖出
	BuyerMaker bool `json:"m"`
}

// ParseCombinedAggTrade 解析 combined stream（或单流）的 aggTrade 消息。
func ParseCombinedAggTrade(raw []byte) (string, market.Tick, error) {
	var msg CombinedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", market.Tick{}, fmt.Errorf("decode envelope: %w", err)
	}
	payload := []byte(msg.Data)
	if len(payload) == 0 {
		payload = raw
	}
	var ev AggTradeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return "", market.Tick{}, fmt.Errorf("decode aggTrade: %w", err)
	}
	if ev.Event != "" && ev.Event != "aggTrade" {
		return "", market.Tick{}, fmt.Errorf("unexpected event %q", ev.Event)
	}
	if ev.Symbol == "" {
		return "", market.Tick{}, fmt.Errorf("aggTrade without symbol")
	}
	price, err := parseDecimal(ev.Price)
	if err != nil {
		return "", market.Tick{}, fmt.Errorf("price: %w", err)
	}
	qty, err := parseDecimal(ev.Quantity)
	if err != nil {
		return "", market.Tick{}, fmt.Errorf("quantity: %w", err)
	}
	side := market.SideBuy
	if ev.BuyerMaker {
		side = market.SideSell
	}
	ts := time.Now().UTC()
	if ev.TradeTime > 0 {
		ts = time.UnixMilli(ev.TradeTime).UTC()
	}
	return strings.ToUpper(ev.Symbol), market.Tick{Ts: ts, Price: price, Qty: qty, Side: side}, nil
}

func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
