package redisfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

func TestParseQuote(t *testing.T) {
	now := time.UnixMilli(1_700_000_010_000)

	q, err := parseQuote(map[string]string{"price": "0.5125", "depth": "1500.25", "ts_ms": "1700000009000"}, now, 5*time.Second)
	require.NoError(t, err)
	assert.InDelta(t, 0.5125, q.Price, 1e-12)
	assert.InDelta(t, 1500.25, q.AvailableDepth, 1e-12)

	// sin maxAge no hace falta timestamp
	_, err = parseQuote(map[string]string{"price": "0.5", "depth": "10"}, now, 0)
	require.NoError(t, err)
}

func TestParseQuote_Rejects(t *testing.T) {
	now := time.UnixMilli(1_700_000_010_000)
	cases := map[string]map[string]string{
		"bad price":    {"price": "abc", "depth": "10"},
		"bad depth":    {"price": "0.5", "depth": ""},
		"zero depth":   {"price": "0.5", "depth": "0"},
		"neg price":    {"price": "-1", "depth": "10"},
		"stale":        {"price": "0.5", "depth": "10", "ts_ms": "1699999990000"},
		"missing ts":   {"price": "0.5", "depth": "10"},
		"malformed ts": {"price": "0.5", "depth": "10", "ts_ms": "yesterday"},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseQuote(fields, now, 5*time.Second)
			assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
		})
	}
}

func TestSource_Key(t *testing.T) {
	s := NewSource(nil, domain.PlatformBinance, Options{})
	assert.Equal(t, "quote:binance:btc-100k-dec", s.Key("btc-100k-dec"))

	s = NewSource(nil, domain.PlatformMEXC, Options{KeyPrefix: "px:"})
	assert.Equal(t, "px:mexc:eth-flip", s.Key("eth-flip"))
}

func TestSource_UnreachableRedisIsUnavailable(t *testing.T) {
	rdb := NewClient(Options{Addr: "127.0.0.1:1"})
	defer rdb.Close()
	s := NewSource(rdb, domain.PlatformCoinbase, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := s.Quote(ctx, "btc-100k-dec")
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)

	_, err = s.Lists(ctx, "btc-100k-dec")
	assert.Error(t, err)
}
