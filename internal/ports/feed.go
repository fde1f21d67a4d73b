package ports

import (
	"context"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// FeedGateway entrega cotizaciones por venue para un mercado.
// La ingesta de market data vive fuera de este módulo; aquí solo se consulta.
type FeedGateway interface {
	// Venues devuelve los venues que listan el mercado. Vacío = mercado desconocido.
	Venues(ctx context.Context, marketID string) ([]domain.Platform, error)

	// GetQuote devuelve precio y depth disponible del mercado en un venue.
	// Un venue caído devuelve un error que envuelve domain.ErrVenueUnavailable.
	GetQuote(ctx context.Context, marketID string, platform domain.Platform) (domain.Quote, error)
}

// QuoteSource es la fuente de cotizaciones de un único venue.
// El Gateway multi-venue compone una QuoteSource por platform.
type QuoteSource interface {
	Quote(ctx context.Context, marketID string) (domain.Quote, error)

	// Lists indica si el venue cotiza el mercado.
	Lists(ctx context.Context, marketID string) (bool, error)
}
