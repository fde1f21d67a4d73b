package redisfeed

// source.go: cotizaciones de exchanges publicadas en Redis por el ingester externo.
//
// Layout:
//   HASH quote:<platform>:<market>  → price, depth, ts_ms
//
// Los valores llegan como strings; se parsean en decimal. Una cotización más
// vieja que MaxAge se trata como venue caído.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

const defaultKeyPrefix = "quote:"

// Options configura la conexión y el layout de claves.
type Options struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string        // por defecto "quote:"
	MaxAge    time.Duration // 0 = sin control de frescura
}

// Source implementa ports.QuoteSource para un venue leyendo de Redis.
type Source struct {
	rdb      redis.UniversalClient
	platform domain.Platform
	prefix   string
	maxAge   time.Duration
	now      func() time.Time
}

// NewClient abre el cliente compartido por todas las fuentes.
func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Username: opts.Username,
		Password: opts.Password,
	})
}

// NewSource crea la fuente de un venue sobre un cliente existente.
func NewSource(rdb redis.UniversalClient, platform domain.Platform, opts Options) *Source {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Source{
		rdb:      rdb,
		platform: platform,
		prefix:   prefix,
		maxAge:   opts.MaxAge,
		now:      time.Now,
	}
}

// Key devuelve la clave del hash de un mercado.
func (s *Source) Key(marketID string) string {
	return s.prefix + string(s.platform) + ":" + marketID
}

func (s *Source) Lists(ctx context.Context, marketID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.Key(marketID)).Result()
	if err != nil {
		return false, fmt.Errorf("redisfeed.Lists %s: %w", s.platform, err)
	}
	return n > 0, nil
}

func (s *Source) Quote(ctx context.Context, marketID string) (domain.Quote, error) {
	m, err := s.rdb.HGetAll(ctx, s.Key(marketID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Quote{}, fmt.Errorf("%w: redisfeed %s: %w", domain.ErrVenueUnavailable, s.platform, err)
	}
	if len(m) == 0 {
		return domain.Quote{}, fmt.Errorf("%w: redisfeed %s: no quote for %q", domain.ErrVenueUnavailable, s.platform, marketID)
	}
	q, err := parseQuote(m, s.now(), s.maxAge)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redisfeed %s %q: %w", s.platform, marketID, err)
	}
	return q, nil
}

// parseQuote convierte los campos del hash. ts_ms es opcional salvo que haya maxAge.
func parseQuote(m map[string]string, now time.Time, maxAge time.Duration) (domain.Quote, error) {
	price, err := decimal.NewFromString(m["price"])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: bad price %q", domain.ErrVenueUnavailable, m["price"])
	}
	depth, err := decimal.NewFromString(m["depth"])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: bad depth %q", domain.ErrVenueUnavailable, m["depth"])
	}

	if maxAge > 0 {
		tsMs, err := strconv.ParseInt(m["ts_ms"], 10, 64)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("%w: missing ts_ms", domain.ErrVenueUnavailable)
		}
		if age := now.Sub(time.UnixMilli(tsMs)); age > maxAge {
			return domain.Quote{}, fmt.Errorf("%w: stale quote (%s old)", domain.ErrVenueUnavailable, age.Round(time.Millisecond))
		}
	}

	q := domain.Quote{Price: price.InexactFloat64(), AvailableDepth: depth.InexactFloat64()}
	if err := q.Validate(); err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}
