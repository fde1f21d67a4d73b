package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alejandrodnm/tradecore/internal/domain"
	"github.com/alejandrodnm/tradecore/internal/ports"
)

// Gateway implementa ports.FeedGateway sobre una QuoteSource por venue.
type Gateway struct {
	sources map[domain.Platform]ports.QuoteSource
}

// NewGateway crea un gateway. Un platform fuera del conjunto soportado es un error.
func NewGateway(sources map[domain.Platform]ports.QuoteSource) (*Gateway, error) {
	out := make(map[domain.Platform]ports.QuoteSource, len(sources))
	for p, s := range sources {
		if _, err := domain.ParsePlatform(string(p)); err != nil {
			return nil, fmt.Errorf("feed.NewGateway: %w", err)
		}
		if s == nil {
			return nil, fmt.Errorf("feed.NewGateway: %w: nil source for %s", domain.ErrInvalidInput, p)
		}
		out[p] = s
	}
	return &Gateway{sources: out}, nil
}

// Venues pregunta a cada fuente si lista el mercado, todas a la vez. Una fuente
// que falla al responder se incluye igualmente: el router la registrará como
// drop al cotizar. El orden de salida es por nombre de venue.
func (g *Gateway) Venues(ctx context.Context, marketID string) ([]domain.Platform, error) {
	platforms := make([]domain.Platform, 0, len(g.sources))
	for p := range g.sources {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	keep := make([]bool, len(platforms))
	var wg sync.WaitGroup
	for i, p := range platforms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.sources[p].Lists(ctx, marketID)
			if err != nil {
				slog.Debug("listing check failed, keeping venue", "platform", p, "market", marketID, "err", err)
				keep[i] = true
				return
			}
			keep[i] = ok
		}()
	}
	wg.Wait()

	var listed []domain.Platform
	for i, p := range platforms {
		if keep[i] {
			listed = append(listed, p)
		}
	}
	return listed, nil
}

// GetQuote delega en la fuente del venue.
func (g *Gateway) GetQuote(ctx context.Context, marketID string, platform domain.Platform) (domain.Quote, error) {
	src, ok := g.sources[platform]
	if !ok {
		return domain.Quote{}, fmt.Errorf("feed.GetQuote: %w: no source for %s", domain.ErrVenueUnavailable, platform)
	}
	q, err := src.Quote(ctx, marketID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("feed.GetQuote %s: %w", platform, err)
	}
	return q, nil
}
