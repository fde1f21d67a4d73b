package router

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

const (
	reasonPrice     = "price"
	reasonFee       = "fee"
	reasonLiquidity = "liquidity"
	reasonLatency   = "latency"
)

var reasonText = map[string]string{
	reasonPrice:     "best net price after fees and slippage",
	reasonFee:       "lowest estimated fees",
	reasonLiquidity: "deepest book and least slippage",
	reasonLatency:   "fastest expected execution",
}

// dominantReason explica por qué ganó el primer candidato. En los modos de un
// solo criterio es ese criterio; en balanced es la dimensión donde el ganador
// más supera la media del resto.
func dominantReason(ranked []domain.RouteCandidate, cfg domain.RouterConfig, side domain.Side) string {
	switch cfg.Mode {
	case domain.ModeLowestFee:
		return reasonFee
	case domain.ModeBestLiquidity:
		return reasonLiquidity
	case domain.ModeBestPrice:
		return reasonPrice
	}
	if len(ranked) < 2 {
		return reasonPrice
	}

	comps := normalizedComponents(ranked, side)
	winner := comps[ranked[0].Platform]
	var mean components
	for _, c := range ranked[1:] {
		o := comps[c.Platform]
		mean.price += o.price
		mean.fee += o.fee
		mean.slippage += o.slippage
		mean.latency += o.latency
	}
	n := float64(len(ranked) - 1)

	// Orden fijo para que el empate sea determinista.
	type adv struct {
		reason string
		value  float64
	}
	advantages := []adv{
		{reasonPrice, winner.price - mean.price/n},
		{reasonFee, winner.fee - mean.fee/n},
		{reasonLiquidity, winner.slippage - mean.slippage/n},
		{reasonLatency, winner.latency - mean.latency/n},
	}
	best := advantages[0]
	for _, a := range advantages[1:] {
		if a.value > best.value+floatEps {
			best = a
		}
	}
	return best.reason
}

func recommendSingle(req domain.RoutingRequest, ranked []domain.RouteCandidate, reason string) string {
	best := ranked[0]
	execution := "taker"
	if best.IsMaker {
		execution = "maker"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.4g on %s at net %.4f (fees %.4f, slippage %.2f%%, %s): %s",
		req.Side, req.Size, best.Platform, best.NetPrice,
		best.EstimatedFees, best.SlippagePercent, execution, reasonText[reason])
	if len(ranked) > 1 {
		next := ranked[1]
		fmt.Fprintf(&b, "; next best %s at net %.4f", next.Platform, next.NetPrice)
	}
	return b.String()
}

func recommendSplit(req domain.RoutingRequest, split *domain.SplitRoute, cfg domain.RouterConfig) string {
	legs := make([]string, len(split.Legs))
	for i, l := range split.Legs {
		legs[i] = fmt.Sprintf("%s %.4g", l.Platform, l.AllocatedSize)
	}
	return fmt.Sprintf("split %s %.4g across %s at avg net %.4f (fees %.4f): no single venue fills the size within %.2f%% slippage",
		req.Side, req.Size, strings.Join(legs, ", "), split.NetPrice, split.EstimatedFees, cfg.MaxSlippage)
}
