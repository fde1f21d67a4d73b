package polymarket

// source.go: Polymarket como QuoteSource del router.
//
// La cotización es el lado ask (coste de comprar el outcome): precio = mejor ask,
// depth = tamaño acumulado de los asks dentro de la banda sobre el mejor ask.
// La suma se hace en decimal para no arrastrar error de los strings del CLOB.

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// DefaultDepthBand es la banda (fracción sobre el mejor ask) que cuenta como depth.
const DefaultDepthBand = 0.02

// Source implementa ports.QuoteSource para Polymarket.
type Source struct {
	client *Client
	tokens map[string]string // marketID → token_id del outcome
	band   decimal.Decimal
}

// NewSource crea la fuente. tokens mapea el id de mercado del core al token del CLOB.
func NewSource(client *Client, tokens map[string]string, depthBand float64) *Source {
	if depthBand <= 0 {
		depthBand = DefaultDepthBand
	}
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &Source{client: client, tokens: cp, band: decimal.NewFromFloat(depthBand)}
}

func (s *Source) Lists(_ context.Context, marketID string) (bool, error) {
	_, ok := s.tokens[marketID]
	return ok, nil
}

func (s *Source) Quote(ctx context.Context, marketID string) (domain.Quote, error) {
	token, ok := s.tokens[marketID]
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: polymarket: market %q not mapped to a token", domain.ErrVenueUnavailable, marketID)
	}
	book, err := s.client.FetchBook(ctx, token)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrVenueUnavailable, err)
	}
	q, err := askQuote(book.Asks, s.band)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("polymarket.Quote %s: %w", marketID, err)
	}
	return q, nil
}

type level struct {
	price decimal.Decimal
	size  decimal.Decimal
}

// parseLevels convierte niveles raw, descartando los malformados o vacíos.
func parseLevels(raw []bookEntryRaw) []level {
	out := make([]level, 0, len(raw))
	for _, r := range raw {
		price, err := decimal.NewFromString(r.Price)
		if err != nil || !price.IsPositive() {
			continue
		}
		size, err := decimal.NewFromString(r.Size)
		if err != nil || !size.IsPositive() {
			continue
		}
		out = append(out, level{price: price, size: size})
	}
	return out
}

// askQuote calcula mejor ask y depth dentro de best × (1 + band).
func askQuote(raw []bookEntryRaw, band decimal.Decimal) (domain.Quote, error) {
	asks := parseLevels(raw)
	if len(asks) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: empty ask book", domain.ErrVenueUnavailable)
	}
	sort.Slice(asks, func(i, j int) bool { return asks[i].price.LessThan(asks[j].price) })

	best := asks[0].price
	limit := best.Mul(decimal.NewFromInt(1).Add(band))
	depth := decimal.Zero
	for _, l := range asks {
		if l.price.GreaterThan(limit) {
			break
		}
		depth = depth.Add(l.size)
	}
	return domain.Quote{
		Price:          best.InexactFloat64(),
		AvailableDepth: depth.InexactFloat64(),
	}, nil
}
