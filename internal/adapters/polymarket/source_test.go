package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradecore/internal/adapters/polymarket"
	"github.com/alejandrodnm/tradecore/internal/domain"
)

const bookJSON = `{
  "market": "0xabc123",
  "asset_id": "token_yes_001",
  "bids": [{"price": "0.48", "size": "300"}],
  "asks": [
    {"price": "0.515", "size": "40"},
    {"price": "0.50", "size": "120.5"},
    {"price": "0.51", "size": "79.5"},
    {"price": "0.60", "size": "1000"},
    {"price": "bad", "size": "10"},
    {"price": "0.505", "size": "0"}
  ]
}`

var tokens = map[string]string{"btc-100k-dec": "token_yes_001"}

func newBookServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSource_QuoteFromAskBook(t *testing.T) {
	srv := newBookServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book", r.URL.Path)
		assert.Equal(t, "token_yes_001", r.URL.Query().Get("token_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(bookJSON))
	})

	src := polymarket.NewSource(polymarket.NewClient(srv.URL, time.Second), tokens, 0.02)
	q, err := src.Quote(context.Background(), "btc-100k-dec")
	require.NoError(t, err)

	// banda 2% sobre 0.50 → hasta 0.51 inclusive: 120.5 + 79.5
	assert.InDelta(t, 0.50, q.Price, 1e-12)
	assert.InDelta(t, 200, q.AvailableDepth, 1e-12)
}

func TestSource_WiderBandCountsMoreDepth(t *testing.T) {
	srv := newBookServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bookJSON))
	})

	src := polymarket.NewSource(polymarket.NewClient(srv.URL, time.Second), tokens, 0.05)
	q, err := src.Quote(context.Background(), "btc-100k-dec")
	require.NoError(t, err)
	assert.InDelta(t, 240, q.AvailableDepth, 1e-12)
}

func TestSource_Lists(t *testing.T) {
	src := polymarket.NewSource(polymarket.NewClient("http://unused", time.Second), tokens, 0)

	ok, err := src.Lists(context.Background(), "btc-100k-dec")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = src.Lists(context.Background(), "eth-flip")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSource_UnmappedMarket(t *testing.T) {
	src := polymarket.NewSource(polymarket.NewClient("http://unused", time.Second), tokens, 0)
	_, err := src.Quote(context.Background(), "eth-flip")
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
}

func TestSource_EmptyAsks(t *testing.T) {
	srv := newBookServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"asset_id":"token_yes_001","bids":[],"asks":[]}`))
	})
	src := polymarket.NewSource(polymarket.NewClient(srv.URL, time.Second), tokens, 0)
	_, err := src.Quote(context.Background(), "btc-100k-dec")
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
}

func TestSource_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newBookServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"No orderbook exists for the requested token id"}`))
	})
	src := polymarket.NewSource(polymarket.NewClient(srv.URL, time.Second), tokens, 0)

	_, err := src.Quote(context.Background(), "btc-100k-dec")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
	assert.Contains(t, err.Error(), "client error 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSource_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newBookServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(bookJSON))
	})
	src := polymarket.NewSource(polymarket.NewClient(srv.URL, time.Second), tokens, 0.02)

	q, err := src.Quote(context.Background(), "btc-100k-dec")
	require.NoError(t, err)
	assert.InDelta(t, 0.50, q.Price, 1e-12)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSource_ContextCancelled(t *testing.T) {
	srv := newBookServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	src := polymarket.NewSource(polymarket.NewClient(srv.URL, time.Second), tokens, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := src.Quote(ctx, "btc-100k-dec")
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}
