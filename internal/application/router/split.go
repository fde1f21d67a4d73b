package router

import (
	"math"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// planSplit reparte el size entre venues cuando ninguno lo absorbe solo.
//
// Cada venue se limita a su capacidad dentro de MaxSlippage; los venues se
// recorren en el orden del modo (evaluados a esa capacidad) y cada uno toma
// min(restante, capacidad). El último leg se ajusta para que la suma sea exacta.
// Devuelve nil y lo que sí se podía llenar si la capacidad combinada no alcanza.
func planSplit(quotes []venueQuote, req domain.RoutingRequest, venues domain.VenueTable, cfg domain.RouterConfig) (*domain.SplitRoute, float64) {
	capped := make([]domain.RouteCandidate, 0, len(quotes))
	byPlatform := make(map[domain.Platform]venueQuote, len(quotes))
	var total float64
	for _, q := range quotes {
		c := math.Min(capacity(q.quote.AvailableDepth, cfg), req.Size)
		if c <= 0 {
			continue
		}
		byPlatform[q.platform] = q
		capped = append(capped, buildCandidate(q, c, req.Side, venues[q.platform], cfg))
		total += c
	}

	tolerance := req.Size * 1e-9
	if total+tolerance < req.Size {
		return nil, total
	}

	ranked := rankCandidates(capped, cfg, req.Side)

	split := &domain.SplitRoute{}
	remaining := req.Size
	for _, c := range ranked {
		if remaining <= tolerance {
			break
		}
		alloc := math.Min(remaining, c.Size)
		remaining -= alloc
		split.Legs = append(split.Legs, domain.SplitLeg{Platform: c.Platform, AllocatedSize: alloc})
	}

	// El último leg absorbe el redondeo.
	var allocated float64
	for i := 0; i < len(split.Legs)-1; i++ {
		allocated += split.Legs[i].AllocatedSize
	}
	last := &split.Legs[len(split.Legs)-1]
	last.AllocatedSize = req.Size - allocated

	var weightedNet, weightedSlip float64
	for i := range split.Legs {
		leg := &split.Legs[i]
		q := byPlatform[leg.Platform]
		leg.Candidate = buildCandidate(q, leg.AllocatedSize, req.Side, venues[leg.Platform], cfg)

		weightedNet += leg.Candidate.NetPrice * leg.AllocatedSize
		weightedSlip += leg.Candidate.SlippagePercent * leg.AllocatedSize
		split.EstimatedFees += leg.Candidate.EstimatedFees
		if leg.Candidate.ExecutionTimeMs > split.ExecutionTimeMs {
			split.ExecutionTimeMs = leg.Candidate.ExecutionTimeMs
		}
	}
	split.NetPrice = weightedNet / req.Size
	split.SlippagePercent = weightedSlip / req.Size
	return split, req.Size
}
