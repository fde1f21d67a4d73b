package main

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tradecore/config"
	"github.com/alejandrodnm/tradecore/internal/adapters/feed"
	"github.com/alejandrodnm/tradecore/internal/adapters/polymarket"
	"github.com/alejandrodnm/tradecore/internal/adapters/redisfeed"
	"github.com/alejandrodnm/tradecore/internal/domain"
	"github.com/alejandrodnm/tradecore/internal/ports"
)

// buildFeed arma el gateway de cotizaciones. En dry-run lee el fixture local;
// si no, compone la fuente CLOB de Polymarket y las fuentes de Redis.
// El cleanup devuelto cierra las conexiones abiertas.
func buildFeed(cfg *config.Config, dryRun bool) (ports.FeedGateway, func(), error) {
	if dryRun {
		if cfg.Feed.Fixtures == "" {
			return nil, nil, fmt.Errorf("buildFeed: %w: dry-run needs feed.fixtures", domain.ErrInvalidInput)
		}
		f, err := feed.LoadFixture(cfg.Feed.Fixtures)
		if err != nil {
			return nil, nil, fmt.Errorf("buildFeed: %w", err)
		}
		slog.Info("using fixture feed", "path", cfg.Feed.Fixtures, "markets", len(f.Markets()))
		return f, func() {}, nil
	}

	sources := make(map[domain.Platform]ports.QuoteSource)
	cleanup := func() {}

	pm := cfg.Feed.Polymarket
	if pm.Enabled {
		client := polymarket.NewClient(pm.CLOBBase, cfg.PolymarketTimeout())
		sources[domain.PlatformPolymarket] = polymarket.NewSource(client, pm.Tokens, pm.DepthBand)
		slog.Debug("polymarket source enabled", "clob", pm.CLOBBase, "tokens", len(pm.Tokens))
	}

	platforms, err := cfg.RedisPlatforms()
	if err != nil {
		return nil, nil, fmt.Errorf("buildFeed: %w", err)
	}
	if len(platforms) > 0 {
		rc := cfg.Feed.Redis
		opts := redisfeed.Options{
			Addr:      rc.Addr,
			Username:  rc.Username,
			Password:  rc.Password,
			DB:        rc.DB,
			KeyPrefix: rc.KeyPrefix,
			MaxAge:    cfg.RedisMaxAge(),
		}
		rdb := redisfeed.NewClient(opts)
		cleanup = func() {
			if err := rdb.Close(); err != nil {
				slog.Warn("redis close failed", "err", err)
			}
		}
		for _, p := range platforms {
			sources[p] = redisfeed.NewSource(rdb, p, opts)
		}
		slog.Debug("redis sources enabled", "addr", rc.Addr, "platforms", platforms)
	}

	if len(sources) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("buildFeed: %w: no quote sources configured", domain.ErrInvalidInput)
	}

	gw, err := feed.NewGateway(sources)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("buildFeed: %w", err)
	}
	return gw, cleanup, nil
}
