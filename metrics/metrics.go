// Package metrics provides Prometheus metrics for the market stats engine
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CumulativeDelta = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_cumulative_delta",
		Help: "Cumulative order-flow delta since the engine was reset",
	}, []string{"symbol"})

	ImbalanceRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_imbalance_ratio",
		Help: "Buy share of recent volume (0..1)",
	}, []string{"symbol"})

	Strength = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_strength",
		Help: "Average delta strength over the stats window (0..100)",
	}, []string{"symbol"})

	Momentum = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_momentum",
		Help: "Momentum classification: 1 bullish, -1 bearish, 0 neutral",
	}, []string{"symbol"})

	VPIN = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_vpin",
		Help: "Volume-synchronized probability of informed trading",
	}, []string{"symbol"})

	VWAP = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_vwap",
		Help: "Cumulative VWAP",
	}, []string{"symbol", "kind"})

	VWAPDeviation = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_vwap_deviation_pct",
		Help: "Price deviation from VWAP in percent",
	}, []string{"symbol"})

	BandPosition = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_band_position",
		Help: "Band position: 1 upper, -1 lower, 0 middle",
	}, []string{"symbol"})

	FundingRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_funding_rate",
		Help: "Latest perpetual funding rate per venue",
	}, []string{"symbol", "venue"})

	OpenInterest = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "market_stats_open_interest",
		Help: "Latest open interest per venue, in contracts",
	}, []string{"symbol", "venue"})

	Ingested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_stats_ingested_total",
		Help: "Updates folded into the engine",
	}, []string{"symbol", "kind"})

	Dropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_stats_dropped_total",
		Help: "Updates ignored by the engine",
	}, []string{"symbol", "reason"})

	FeedReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_stats_feed_reconnects_total",
		Help: "Feed reconnect attempts",
	}, []string{"source"})

	FeedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_stats_feed_errors_total",
		Help: "Feed fetch/parse errors",
	}, []string{"source"})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_stats_api_requests_total",
		Help: "Dashboard REST requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
)

// Handler 返回 /metrics 处理器。
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server 包装 Prometheus 指标 HTTP 服务，便于纳入生命周期管理。
type Server struct {
	srv *http.Server
}

// NewServer 创建指标服务器（未启动）。
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}
}

// Start 后台启动；监听失败通过 errCh 返回。
func (s *Server) Start(errCh chan<- error) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if errCh != nil {
				errCh <- err
			}
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
