package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/tradecore/config"
	"github.com/alejandrodnm/tradecore/internal/domain"
)

func TestLoad_File(t *testing.T) {
	cfg, err := config.Load("testdata/full.yaml")
	require.NoError(t, err)

	assert.Equal(t, 5000.0, cfg.Sizing.InitialBankroll)
	sc := cfg.SizingConfig()
	assert.Equal(t, 0.5, sc.BaseMultiplier)
	assert.Equal(t, 0.2, sc.MaxKelly)
	assert.Equal(t, 10, sc.LookbackTrades)
	// defaults para lo que no viene en el YAML
	assert.Equal(t, domain.DefaultSizingConfig().MaxDrawdown, sc.MaxDrawdown)

	rc, err := cfg.RouterConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.ModeBalanced, rc.Mode)
	assert.Equal(t, 3.0, rc.MaxSlippage)
	assert.True(t, rc.AllowSplitting)
	assert.Equal(t, 500*time.Millisecond, rc.VenueTimeout)
	assert.Equal(t, domain.DefaultRouterConfig().Timeout, rc.Timeout)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention())
	assert.Equal(t, 3*time.Second, cfg.RedisMaxAge())
	assert.Equal(t, "7142", cfg.Feed.Polymarket.Tokens["btc-100k-dec"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestVenueTable_AppliesOverrides(t *testing.T) {
	cfg, err := config.Load("testdata/full.yaml")
	require.NoError(t, err)

	table, err := cfg.VenueTable()
	require.NoError(t, err)
	def := domain.DefaultVenueTable()

	// el nombre del venue es case-insensitive
	assert.Equal(t, 50.0, table[domain.PlatformKalshi].TakerBps)
	assert.Equal(t, def[domain.PlatformKalshi].MakerBps, table[domain.PlatformKalshi].MakerBps)
	assert.Equal(t, 40, table[domain.PlatformMEXC].LatencyMs)
	assert.Equal(t, def[domain.PlatformBinance], table[domain.PlatformBinance])
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Sizing.InitialBankroll)
	assert.Equal(t, domain.DefaultSizingConfig(), cfg.SizingConfig())
	rc, err := cfg.RouterConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRouterConfig(), rc)
	assert.Equal(t, "tradecore.db", cfg.Storage.DSN)
	assert.Equal(t, "https://clob.polymarket.com", cfg.Feed.Polymarket.CLOBBase)
	assert.Equal(t, 0.02, cfg.Feed.Polymarket.DepthBand)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Router.Workers)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ROUTER_MODE", "lowest_fee")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("STORAGE_DSN", "/tmp/decisions.db")

	cfg, err := config.Parse([]byte("router:\n  mode: balanced\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "lowest_fee", cfg.Router.Mode)
	assert.Equal(t, "cache:6380", cfg.Feed.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Feed.Redis.Password)
	assert.Equal(t, "/tmp/decisions.db", cfg.Storage.DSN)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown venue":        "venues:\n  bitmex:\n    taker_bps: 10\n",
		"negative fee":         "venues:\n  kalshi:\n    taker_bps: -1\n",
		"unknown mode":         "router:\n  mode: fastest\n",
		"unknown redis venue":  "feed:\n  redis:\n    platforms: [ftx]\n",
		"polymarket twice":     "feed:\n  polymarket:\n    enabled: true\n  redis:\n    platforms: [polymarket]\n",
		"kelly above one":      "sizing:\n  max_kelly: 1.5\n",
		"min above max":        "sizing:\n  max_kelly: 0.1\n  min_kelly: 0.2\n",
		"band too wide":        "feed:\n  polymarket:\n    depth_band: 1.5\n",
		"unknown log format":   "log:\n  format: xml\n",
		"malformed yaml input": "router: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
