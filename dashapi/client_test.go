package dashapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "tok", 0, 0, time.Second)
	c.HTTPClient = srv.Client()
	return c
}

func TestListSignals(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/signals", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
		io.WriteString(w, `[{"id":"s1","symbol":"BTCUSDT","type":"delta_divergence","direction":"long","confidence":0.8,"price":43000,"timestamp":1700000000000}]`)
	})
	signals, err := c.ListSignals(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "BTCUSDT", signals[0].Symbol)
	assert.Equal(t, 0.8, signals[0].Confidence)
}

func TestListSignalsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `null`)
	})
	signals, err := c.ListSignals(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, signals)
	assert.Empty(t, signals)
}

func TestListWatchlists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/watchlists", r.URL.Path)
		io.WriteString(w, `{"watchlists":[{"id":"w1","name":"majors","symbols":["BTCUSDT","ETHUSDT"]}]}`)
	})
	lists, err := c.ListWatchlists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "majors", lists[0].Name)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, lists[0].Symbols)
}

func TestCreateWatchlist(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alts", body["name"])
		_, hasDesc := body["description"]
		assert.False(t, hasDesc)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"w2","name":"alts"}`)
	})
	wl, err := c.CreateWatchlist(context.Background(), "  alts ", "")
	require.NoError(t, err)
	assert.Equal(t, "w2", wl.ID)
}

func TestCreateWatchlistEmptyName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not be sent")
	})
	_, err := c.CreateWatchlist(context.Background(), " ", "x")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestAPIErrorStatus(t *testing.T) {
	cases := []struct {
		status    int
		body      string
		message   string
		retryable bool
	}{
		{http.StatusInternalServerError, `{"error":"db down"}`, "db down", true},
		{http.StatusTooManyRequests, `slow down`, "slow down", true},
		{http.StatusNotFound, `{"detail":"not found"}`, "not found", false},
		{http.StatusBadRequest, ``, "Bad Request", false},
	}
	for _, tc := range cases {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			io.WriteString(w, tc.body)
		})
		_, err := c.ListSignals(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), "status %d", tc.status)
		assert.Equal(t, tc.status, apiErr.Status)
		assert.Equal(t, tc.message, apiErr.Message)
		assert.Equal(t, tc.retryable, apiErr.Retryable)
		assert.Equal(t, tc.retryable, IsRetryable(err))
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "", 0, 0, time.Second)
	_, err := c.ListWatchlists(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.True(t, apiErr.Retryable)
}

func TestDecodeErrorNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"watchlists": 5}`)
	})
	_, err := c.ListWatchlists(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Retryable)
}

func TestLimiterHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	c2 := NewClient(c.BaseURL, "", 0.001, 1, time.Second)
	c2.HTTPClient = c.HTTPClient
	require.NotNil(t, c2.Limiter)

	_, err := c2.ListSignals(context.Background())
	require.NoError(t, err)

	// 令牌已耗尽，下一次需要等待远超截止时间
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c2.ListSignals(ctx)
	assert.Error(t, err)
}
