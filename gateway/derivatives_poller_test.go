package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"market-stats-go/market"
)

type stubDerivatives struct {
	venue   string
	rate    float64
	oi      float64
	fundErr error
	oiErr   error
}

func (s stubDerivatives) Venue() string { return s.venue }

func (s stubDerivatives) FetchFunding(context.Context, string) (market.FundingRate, error) {
	if s.fundErr != nil {
		return market.FundingRate{}, s.fundErr
	}
	return market.FundingRate{Venue: s.venue, Rate: s.rate, Ts: time.Now().UTC()}, nil
}

func (s stubDerivatives) FetchOpenInterest(context.Context, string) (market.OpenInterest, error) {
	if s.oiErr != nil {
		return market.OpenInterest{}, s.oiErr
	}
	return market.OpenInterest{Venue: s.venue, Contracts: s.oi, Ts: time.Now().UTC()}, nil
}

func TestDerivativesPollerOmitsFailures(t *testing.T) {
	p := NewDerivativesPoller(time.Second, rate.NewLimiter(rate.Inf, 1),
		stubDerivatives{venue: "a", rate: 0.0001, oi: 10},
		stubDerivatives{venue: "b", rate: 0.0002, oiErr: errors.New("timeout")},
	)
	var partial bool
	p.EventSink = func(_, state string, _ map[string]interface{}) { partial = state == "partial" }

	r, err := p.Poll(context.Background(), "btcusdt")
	require.NoError(t, err)
	assert.Len(t, r.Funding, 2)
	require.Len(t, r.OpenInterest, 1)
	assert.Equal(t, "a", r.OpenInterest[0].Venue)
	assert.True(t, partial)
}

func TestDerivativesPollerAllFail(t *testing.T) {
	down := errors.New("down")
	p := NewDerivativesPoller(time.Second, nil, stubDerivatives{venue: "a", fundErr: down, oiErr: down})
	_, err := p.Poll(context.Background(), "BTCUSDT")
	assert.Error(t, err)

	_, err = NewDerivativesPoller(time.Second, nil).Poll(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestDerivativesPollerSubscribe(t *testing.T) {
	p := NewDerivativesPoller(5*time.Millisecond, nil, stubDerivatives{venue: "a", rate: 0.0003, oi: 7})
	got := make(chan DerivativesReading, 8)
	cancel, err := p.Subscribe(context.Background(), "ethusdt", func(symbol string, r DerivativesReading) {
		assert.Equal(t, "ETHUSDT", symbol)
		select {
		case got <- r:
		default:
		}
	})
	require.NoError(t, err)
	defer cancel()

	select {
	case r := <-got:
		require.Len(t, r.Funding, 1)
		assert.Equal(t, 0.0003, r.Funding[0].Rate)
		assert.Equal(t, 7.0, r.OpenInterest[0].Contracts)
	case <-time.After(time.Second):
		t.Fatal("no reading delivered")
	}

	_, err = p.Subscribe(context.Background(), "", func(string, DerivativesReading) {})
	assert.Error(t, err)
	_, err = p.Subscribe(context.Background(), "BTCUSDT", nil)
	assert.Error(t, err)
}
