package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"market-stats-go/market"
	"market-stats-go/metrics"
)

// BinanceFuturesWSEndpoint 默认 futures 行情 WS 地址。
const BinanceFuturesWSEndpoint = "wss://fstream.binance.com"

// SourceBinanceTrades 是成交流在日志/指标中的名字。
const SourceBinanceTrades = "binance_aggtrade"

// TradeHandler 接收解析后的成交。
type TradeHandler func(symbol string, t market.Tick)

// EventSink 接收连接状态变化，签名与 logger.LogFeed 一致。
type EventSink func(source, state string, fields map[string]interface{})

// CancelFunc 取消订阅并等待后台 goroutine 退出。
type CancelFunc func()

// BinanceTradeStream 订阅 combined aggTrade 流，断线后按指数退避自动重连。
type BinanceTradeStream struct {
	Endpoint    string
	Dialer      *websocket.Dialer
	ReadTimeout time.Duration
	Backoff     time.Duration
	MaxBackoff  time.Duration
	EventSink   EventSink
}

func NewBinanceTradeStream(endpoint string) *BinanceTradeStream {
	if endpoint == "" {
		endpoint = BinanceFuturesWSEndpoint
	}
	return &BinanceTradeStream{
		Endpoint:    endpoint,
		Dialer:      websocket.DefaultDialer,
		ReadTimeout: 30 * time.Second,
		Backoff:     time.Second,
		MaxBackoff:  30 * time.Second,
	}
}

// StreamURL 构建 /stream?streams=a@aggTrade/b@aggTrade。
func (b *BinanceTradeStream) StreamURL(symbols []string) (string, error) {
	u, err := url.Parse(b.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		streams = append(streams, strings.ToLower(s)+"@aggTrade")
	}
	if len(streams) == 0 {
		return "", errors.New("no symbols to subscribe")
	}
	u.Path = "/stream"
	q := u.Query()
	q.Set("streams", strings.Join(streams, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe 在后台运行连接循环直到 ctx 结束或调用返回的 CancelFunc。
func (b *BinanceTradeStream) Subscribe(ctx context.Context, symbols []string, fn TradeHandler) (CancelFunc, error) {
	if fn == nil {
		return nil, errors.New("trade handler required")
	}
	endpoint, err := b.StreamURL(symbols)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.run(ctx, endpoint, fn)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (b *BinanceTradeStream) run(ctx context.Context, endpoint string, fn TradeHandler) {
	backoff := b.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := b.MaxBackoff
	if maxBackoff < backoff {
		maxBackoff = backoff
	}
	wait := backoff
	for {
		received, err := b.session(ctx, endpoint, fn)
		if ctx.Err() != nil {
			b.emit("stopped", nil)
			return
		}
		if received {
			wait = backoff
		}
		metrics.FeedReconnects.WithLabelValues(SourceBinanceTrades).Inc()
		fields := map[string]interface{}{"retry_in": wait.String()}
		if err != nil {
			fields["error"] = err.Error()
		}
		b.emit("disconnected", fields)
		select {
		case <-ctx.Done():
			b.emit("stopped", nil)
			return
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

// session 维持一次连接；received 表示本次连接至少收到过一条消息。
func (b *BinanceTradeStream) session(ctx context.Context, endpoint string, fn TradeHandler) (received bool, err error) {
	dialer := b.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	b.emit("connected", map[string]interface{}{"url": endpoint})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	timeout := b.ReadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return received, fmt.Errorf("read: %w", err)
		}
		received = true
		symbol, tick, err := ParseCombinedAggTrade(message)
		if err != nil {
			metrics.FeedErrors.WithLabelValues(SourceBinanceTrades).Inc()
			continue
		}
		fn(symbol, tick)
	}
}

func (b *BinanceTradeStream) emit(state string, fields map[string]interface{}) {
	if b.EventSink != nil {
		b.EventSink(SourceBinanceTrades, state, fields)
	}
}
