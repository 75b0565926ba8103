package container

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"market-stats-go/config"
	"market-stats-go/infrastructure/logger"
)

// 端到端：成交 WS + bybit 行情 REST → 容器 → 引擎快照。
func TestPipelineEndToEnd(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for i := 0; i < 5; i++ {
			msg := fmt.Sprintf(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","p":"%d","q":"1","T":%d,"m":%v}}`,
				100+i, 1700000000000+int64(i), i%2 == 1)
			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// 保持连接直到客户端关闭
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ws.Close()

	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v5/market/open-interest" {
			io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","symbol":"BTCUSDT",
				"list":[{"openInterest":"4200","timestamp":"1700000000000"}]},"retExtInfo":{},"time":1}`)
			return
		}
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[
			{"symbol":"BTCUSDT","lastPrice":"101.5","volume24h":"500","markPrice":"101.6",
			 "fundingRate":"0.0001","nextFundingTime":"1700006400000"}]},"retExtInfo":{},"time":1}`)
	}))
	defer rest.Close()

	cfg := config.Default()
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.Metrics.Addr = ""
	cfg.Feed.TradeWSEndpoint = "ws" + strings.TrimPrefix(ws.URL, "http")
	cfg.Feed.TickerVenues = []string{config.VenueBybit}
	cfg.Feed.BybitRESTURL = rest.URL
	cfg.Feed.TickerIntervalMs = 10
	cfg.Feed.DerivativesVenues = []string{config.VenueBybit}
	cfg.Feed.DerivativesIntervalMs = 10

	c := NewWithConfig("", cfg)
	c.logger = logger.NewNop()
	require.NoError(t, c.Build())
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()

	require.Eventually(t, func() bool {
		snap, err := c.Service().Snapshot("BTCUSDT")
		if err != nil {
			return false
		}
		return len(snap.Deltas) == 5 && len(snap.VWAPs) > 0 && len(snap.Derivatives.OpenInterest) > 0
	}, 3*time.Second, 10*time.Millisecond)

	snap, err := c.Service().Snapshot("BTCUSDT")
	require.NoError(t, err)
	last := snap.Deltas[len(snap.Deltas)-1]
	// 100 - 101 + 102 - 103 + 104
	require.InDelta(t, 102.0, last.CumulativeDelta, 1e-9)
	p, ok := snap.LatestVWAP()
	require.True(t, ok)
	require.InDelta(t, 101.5, p.VWAP, 1e-9)
	require.InDelta(t, 0.0001, snap.Derivatives.Funding[config.VenueBybit].Rate, 1e-12)
	require.InDelta(t, 4200.0, snap.Derivatives.TotalOpenInterest, 1e-9)
	require.NoError(t, c.HealthCheck())
}
