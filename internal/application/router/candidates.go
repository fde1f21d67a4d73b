package router

import (
	"math"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// buildCandidate estima la ejecución de size unidades en un venue.
//
// Slippage lineal: ImpactPercent × size / depth. El fee se cobra sobre el notional
// y es maker solo si se prefiere maker y el book tiene depth para todo el size.
// NetPrice aplica slippage y fee en contra del trader: sube para buy, baja para sell.
func buildCandidate(q venueQuote, size float64, side domain.Side, profile domain.VenueProfile, cfg domain.RouterConfig) domain.RouteCandidate {
	maker := cfg.PreferMaker && q.quote.AvailableDepth >= size
	rate := profile.FeeRate(maker)

	slip := cfg.ImpactPercent * size / q.quote.AvailableDepth
	fees := size * q.quote.Price * rate

	adj := slip/100 + rate
	net := q.quote.Price * (1 + adj)
	if side == domain.SideSell {
		net = math.Max(0, q.quote.Price*(1-adj))
	}

	return domain.RouteCandidate{
		Platform:        q.platform,
		Size:            size,
		QuotedPrice:     q.quote.Price,
		AvailableDepth:  q.quote.AvailableDepth,
		NetPrice:        net,
		EstimatedFees:   fees,
		SlippagePercent: slip,
		IsMaker:         maker,
		ExecutionTimeMs: profile.LatencyMs,
	}
}

// capacity es el size máximo que un venue absorbe sin pasar de MaxSlippage.
func capacity(depth float64, cfg domain.RouterConfig) float64 {
	return depth * cfg.MaxSlippage / cfg.ImpactPercent
}
