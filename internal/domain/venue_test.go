package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform(" Polymarket ")
	require.NoError(t, err)
	assert.Equal(t, PlatformPolymarket, p)

	_, err = ParsePlatform("ftx")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDefaultVenueTable_Valid(t *testing.T) {
	table := DefaultVenueTable()
	require.NoError(t, table.Validate())
	assert.Len(t, table.Platforms(), len(KnownPlatforms()))
}

func TestVenueTable_RejectsMismatchedKey(t *testing.T) {
	table := VenueTable{
		PlatformKalshi: {Platform: PlatformBinance, TakerBps: 10},
	}
	assert.ErrorIs(t, table.Validate(), ErrInvalidInput)
}

func TestVenueTable_RejectsNegativeFees(t *testing.T) {
	table := VenueTable{
		PlatformKalshi: {Platform: PlatformKalshi, TakerBps: -1},
	}
	assert.ErrorIs(t, table.Validate(), ErrInvalidInput)
}

func TestVenueProfile_FeeRate(t *testing.T) {
	v := VenueProfile{TakerBps: 70, MakerBps: 17}
	assert.InDelta(t, 0.0070, v.FeeRate(false), 1e-12)
	assert.InDelta(t, 0.0017, v.FeeRate(true), 1e-12)
}

func TestQuote_Validate(t *testing.T) {
	assert.NoError(t, Quote{Price: 0.5, AvailableDepth: 10}.Validate())
	assert.ErrorIs(t, Quote{Price: 0, AvailableDepth: 10}.Validate(), ErrVenueUnavailable)
	assert.ErrorIs(t, Quote{Price: 0.5}.Validate(), ErrVenueUnavailable)
}

func TestRoutingRequest_Validate(t *testing.T) {
	ok := RoutingRequest{MarketID: "m1", Side: SideBuy, Size: 10}
	assert.NoError(t, ok.Validate())

	assert.ErrorIs(t, RoutingRequest{MarketID: "m1", Side: SideBuy}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, RoutingRequest{MarketID: "", Side: SideBuy, Size: 1}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, RoutingRequest{MarketID: "m1", Side: "hold", Size: 1}.Validate(), ErrInvalidInput)
}

func TestRouterConfig_Validate(t *testing.T) {
	cfg := DefaultRouterConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Mode = "fastest"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = cfg
	bad.MaxSlippage = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = cfg
	bad.VenueTimeout = -time.Second
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func TestSizingConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultSizingConfig().Validate())

	cfg := DefaultSizingConfig()
	cfg.MinKelly = 0.5
	cfg.MaxKelly = 0.2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = DefaultSizingConfig()
	cfg.LookbackTrades = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = DefaultSizingConfig()
	cfg.MaxKelly = 1.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
}

func TestRoutingResult_Accessors(t *testing.T) {
	single := RoutingResult{BestRoute: &RouteCandidate{Platform: PlatformKalshi, NetPrice: 0.51, EstimatedFees: 1}}
	assert.False(t, single.IsSplit())
	assert.Equal(t, []Platform{PlatformKalshi}, single.Platforms())
	assert.Equal(t, 0.51, single.NetPrice())

	split := RoutingResult{Split: &SplitRoute{
		Legs: []SplitLeg{
			{Platform: PlatformPolymarket, AllocatedSize: 60},
			{Platform: PlatformKalshi, AllocatedSize: 40},
		},
		NetPrice:      0.52,
		EstimatedFees: 2,
	}}
	assert.True(t, split.IsSplit())
	assert.Equal(t, []Platform{PlatformPolymarket, PlatformKalshi}, split.Platforms())
	assert.InDelta(t, 100, split.Split.TotalSize(), 1e-9)
	assert.Equal(t, 2.0, split.EstimatedFees())
}

func TestRoutingError_UnwrapAndPartial(t *testing.T) {
	partial := RoutingResult{Warnings: []string{"kalshi: timeout"}}
	var err error = &RoutingError{Kind: ErrNoLiquidity, Msg: "all venues dropped", Partial: partial}

	assert.True(t, errors.Is(err, ErrNoLiquidity))
	assert.Contains(t, err.Error(), "all venues dropped")

	got, ok := PartialResult(err)
	require.True(t, ok)
	assert.Equal(t, partial.Warnings, got.Warnings)

	_, ok = PartialResult(errors.New("other"))
	assert.False(t, ok)
}
