package feed

// static.go: feed en memoria cargado desde un fixture YAML.
// Se usa en dry-run y en tests; no toca la red.

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// FixtureQuote es una entrada del fixture.
type FixtureQuote struct {
	Price   float64 `yaml:"price"`
	Depth   float64 `yaml:"depth"`
	Down    bool    `yaml:"down"`     // el venue responde con error
	DelayMs int     `yaml:"delay_ms"` // latencia simulada
}

// Fixture es el formato del archivo: market → platform → quote.
type Fixture struct {
	Markets map[string]map[string]FixtureQuote `yaml:"markets"`
}

// StaticFeed implementa ports.FeedGateway con cotizaciones fijas.
type StaticFeed struct {
	mu      sync.RWMutex
	markets map[string]map[domain.Platform]FixtureQuote
}

// NewStaticFeed crea un feed vacío.
func NewStaticFeed() *StaticFeed {
	return &StaticFeed{markets: make(map[string]map[domain.Platform]FixtureQuote)}
}

// LoadFixture lee un archivo YAML de cotizaciones.
func LoadFixture(path string) (*StaticFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("feed.LoadFixture: read %q: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture construye un StaticFeed desde YAML. Platforms desconocidos se rechazan.
func ParseFixture(data []byte) (*StaticFeed, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("feed.ParseFixture: %w", err)
	}
	f := NewStaticFeed()
	for market, venues := range fx.Markets {
		for name, q := range venues {
			p, err := domain.ParsePlatform(name)
			if err != nil {
				return nil, fmt.Errorf("feed.ParseFixture: market %q: %w", market, err)
			}
			f.Set(market, p, q)
		}
	}
	return f, nil
}

// Set añade o reemplaza la cotización de un venue.
func (f *StaticFeed) Set(marketID string, p domain.Platform, q FixtureQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markets[marketID] == nil {
		f.markets[marketID] = make(map[domain.Platform]FixtureQuote)
	}
	f.markets[marketID][p] = q
}

// Markets devuelve los mercados del fixture ordenados.
func (f *StaticFeed) Markets() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.markets))
	for m := range f.markets {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (f *StaticFeed) Venues(_ context.Context, marketID string) ([]domain.Platform, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	venues := f.markets[marketID]
	out := make([]domain.Platform, 0, len(venues))
	for p := range venues {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *StaticFeed) GetQuote(ctx context.Context, marketID string, p domain.Platform) (domain.Quote, error) {
	f.mu.RLock()
	q, ok := f.markets[marketID][p]
	f.mu.RUnlock()
	if !ok {
		return domain.Quote{}, fmt.Errorf("%w: %s does not quote %q", domain.ErrVenueUnavailable, p, marketID)
	}

	if q.DelayMs > 0 {
		select {
		case <-time.After(time.Duration(q.DelayMs) * time.Millisecond):
		case <-ctx.Done():
			return domain.Quote{}, fmt.Errorf("%w: %w", domain.ErrVenueUnavailable, ctx.Err())
		}
	}
	if q.Down {
		return domain.Quote{}, fmt.Errorf("%w: %s is down", domain.ErrVenueUnavailable, p)
	}
	return domain.Quote{Price: q.Price, AvailableDepth: q.Depth}, nil
}

// Source devuelve una vista de un solo venue, utilizable como ports.QuoteSource.
func (f *StaticFeed) Source(p domain.Platform) *StaticSource {
	return &StaticSource{feed: f, platform: p}
}

// StaticSource es la QuoteSource de un venue sobre un StaticFeed.
type StaticSource struct {
	feed     *StaticFeed
	platform domain.Platform
}

func (s *StaticSource) Quote(ctx context.Context, marketID string) (domain.Quote, error) {
	return s.feed.GetQuote(ctx, marketID, s.platform)
}

func (s *StaticSource) Lists(_ context.Context, marketID string) (bool, error) {
	s.feed.mu.RLock()
	defer s.feed.mu.RUnlock()
	_, ok := s.feed.markets[marketID][s.platform]
	return ok, nil
}
