package router

import (
	"math"
	"sort"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

const floatEps = 1e-12

// rankCandidates ordena una copia de cands según el modo. Empates:
// menor latencia, luego el que coincide con PreferMaker, luego nombre del venue.
func rankCandidates(cands []domain.RouteCandidate, cfg domain.RouterConfig, side domain.Side) []domain.RouteCandidate {
	out := make([]domain.RouteCandidate, len(cands))
	copy(out, cands)

	var primary func(a, b domain.RouteCandidate) int
	switch cfg.Mode {
	case domain.ModeLowestFee:
		primary = func(a, b domain.RouteCandidate) int { return cmpFloat(a.EstimatedFees, b.EstimatedFees) }
	case domain.ModeBestLiquidity:
		primary = func(a, b domain.RouteCandidate) int { return cmpFloat(b.AvailableDepth, a.AvailableDepth) }
	case domain.ModeBalanced:
		scores := balancedScores(out, side)
		primary = func(a, b domain.RouteCandidate) int { return cmpFloat(scores[b.Platform], scores[a.Platform]) }
	default:
		primary = func(a, b domain.RouteCandidate) int { return comparePrice(a.NetPrice, b.NetPrice, side) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := primary(a, b); c != 0 {
			return c < 0
		}
		if a.ExecutionTimeMs != b.ExecutionTimeMs {
			return a.ExecutionTimeMs < b.ExecutionTimeMs
		}
		if am, bm := a.IsMaker == cfg.PreferMaker, b.IsMaker == cfg.PreferMaker; am != bm {
			return am
		}
		return a.Platform < b.Platform
	})
	return out
}

// comparePrice devuelve <0 si a es mejor precio neto que b para el lado dado.
func comparePrice(a, b float64, side domain.Side) int {
	if side == domain.SideSell {
		return cmpFloat(b, a)
	}
	return cmpFloat(a, b)
}

func cmpFloat(a, b float64) int {
	switch {
	case math.Abs(a-b) <= floatEps*math.Max(1, math.Max(math.Abs(a), math.Abs(b))):
		return 0
	case a < b:
		return -1
	}
	return 1
}

// components son las cuatro dimensiones normalizadas a [0,1] (1 = mejor) de un candidato.
type components struct {
	price, fee, slippage, latency float64
}

// score suma las cuatro dimensiones con el mismo peso.
func (c components) score() float64 {
	return c.price + c.fee + c.slippage + c.latency
}

// normalizedComponents normaliza min-max cada dimensión sobre el conjunto.
// Si una dimensión no varía, todos reciben 1 en ella.
func normalizedComponents(cands []domain.RouteCandidate, side domain.Side) map[domain.Platform]components {
	if len(cands) == 0 {
		return nil
	}
	price := make([]float64, len(cands))
	fee := make([]float64, len(cands))
	slip := make([]float64, len(cands))
	lat := make([]float64, len(cands))
	for i, c := range cands {
		price[i] = c.NetPrice
		fee[i] = c.EstimatedFees
		slip[i] = c.SlippagePercent
		lat[i] = float64(c.ExecutionTimeMs)
	}

	lowerIsBetter := func(vals []float64) []float64 { return minMax(vals, true) }
	higherIsBetter := func(vals []float64) []float64 { return minMax(vals, false) }

	priceNorm := lowerIsBetter(price)
	if side == domain.SideSell {
		priceNorm = higherIsBetter(price)
	}
	feeNorm := lowerIsBetter(fee)
	slipNorm := lowerIsBetter(slip)
	latNorm := lowerIsBetter(lat)

	out := make(map[domain.Platform]components, len(cands))
	for i, c := range cands {
		out[c.Platform] = components{
			price:    priceNorm[i],
			fee:      feeNorm[i],
			slippage: slipNorm[i],
			latency:  latNorm[i],
		}
	}
	return out
}

func balancedScores(cands []domain.RouteCandidate, side domain.Side) map[domain.Platform]float64 {
	comps := normalizedComponents(cands, side)
	scores := make(map[domain.Platform]float64, len(comps))
	for p, c := range comps {
		scores[p] = c.score()
	}
	return scores
}

func minMax(vals []float64, lowerIsBetter bool) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(vals))
	span := hi - lo
	for i, v := range vals {
		switch {
		case span <= floatEps:
			out[i] = 1
		case lowerIsBetter:
			out[i] = (hi - v) / span
		default:
			out[i] = (v - lo) / span
		}
	}
	return out
}
