package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceFuturesFunding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"symbol":"BTCUSDT","markPrice":"43010.5","indexPrice":"43000.0",
			"estimatedSettlePrice":"43001.2","lastFundingRate":"-0.00012500","interestRate":"0.0001",
			"nextFundingTime":1700006400000,"time":1700000000000}`)
	}))
	defer srv.Close()

	f, err := NewBinanceFuturesTicker(srv.URL, srv.Client()).FetchFunding(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, VenueBinanceFutures, f.Venue)
	assert.InDelta(t, -0.000125, f.Rate, 1e-12)
	assert.Equal(t, 43010.5, f.MarkPrice)
	assert.True(t, f.NextFundingTime.Equal(time.UnixMilli(1700006400000)))
	assert.True(t, f.Ts.Equal(time.UnixMilli(1700000000000)))
}

func TestBinanceFuturesOpenInterest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/openInterest", r.URL.Path)
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"openInterest":"81234.567","symbol":"ETHUSDT","time":1700000000000}`)
	}))
	defer srv.Close()

	oi, err := NewBinanceFuturesTicker(srv.URL, srv.Client()).FetchOpenInterest(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, VenueBinanceFutures, oi.Venue)
	assert.Equal(t, 81234.567, oi.Contracts)
	assert.True(t, oi.Ts.Equal(time.UnixMilli(1700000000000)))
}

func TestBybitFunding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[
			{"symbol":"BTCUSDT","lastPrice":"42990.5","volume24h":"2000","markPrice":"42991",
			 "fundingRate":"0.0001","nextFundingTime":"1700006400000"}]},"retExtInfo":{},"time":1700000000000}`)
	}))
	defer srv.Close()

	f, err := NewBybitTicker(srv.URL, srv.Client()).FetchFunding(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, VenueBybit, f.Venue)
	assert.Equal(t, 0.0001, f.Rate)
	assert.Equal(t, 42991.0, f.MarkPrice)
	assert.True(t, f.NextFundingTime.Equal(time.UnixMilli(1700006400000)))
	assert.False(t, f.Ts.IsZero())
}

func TestBybitOpenInterest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v5/market/open-interest", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		assert.Equal(t, "5min", r.URL.Query().Get("intervalTime"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","symbol":"BTCUSDT",
			"list":[{"openInterest":"46123.5","timestamp":"1700000000000"}],"nextPageCursor":""},
			"retExtInfo":{},"time":1700000000100}`)
	}))
	defer srv.Close()

	oi, err := NewBybitTicker(srv.URL, srv.Client()).FetchOpenInterest(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Equal(t, VenueBybit, oi.Venue)
	assert.Equal(t, 46123.5, oi.Contracts)
	assert.True(t, oi.Ts.Equal(time.UnixMilli(1700000000000)))
}

func TestBybitOpenInterestEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"retCode":0,"retMsg":"OK","result":{"category":"linear","symbol":"BTCUSDT","list":[]},"retExtInfo":{},"time":1}`)
	}))
	defer srv.Close()

	_, err := NewBybitTicker(srv.URL, srv.Client()).FetchOpenInterest(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestBuildDerivativesSources(t *testing.T) {
	srcs, err := BuildDerivativesSources([]string{VenueBybit, VenueBinanceFutures}, "", "", nil)
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, VenueBybit, srcs[0].Venue())
	assert.Equal(t, VenueBinanceFutures, srcs[1].Venue())

	_, err = BuildDerivativesSources([]string{"okx"}, "", "", nil)
	assert.Error(t, err)
}
