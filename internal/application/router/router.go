package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/tradecore/internal/domain"
	"github.com/alejandrodnm/tradecore/internal/ports"
)

// slippageTolerance absorbe el error de redondeo al comparar contra MaxSlippage.
const slippageTolerance = 1e-9

// Observer recibe eventos del router (métricas). Todas las llamadas son best-effort.
type Observer interface {
	VenueDropped(platform domain.Platform, reason string)
	QuoteLatency(platform domain.Platform, d time.Duration)
	RouteDecided(mode domain.RouteMode, outcome string, d time.Duration)
}

type noopObserver struct{}

func (noopObserver) VenueDropped(domain.Platform, string)                 {}
func (noopObserver) QuoteLatency(domain.Platform, time.Duration)          {}
func (noopObserver) RouteDecided(domain.RouteMode, string, time.Duration) {}

// Option configura un SmartRouter.
type Option func(*SmartRouter)

// WithObserver instala un observer de métricas.
func WithObserver(o Observer) Option {
	return func(r *SmartRouter) {
		if o != nil {
			r.obs = o
		}
	}
}

// SmartRouter elige dónde y cómo ejecutar una orden entre varios venues.
// Es stateless por llamada: cada FindBestRoute recalcula todo desde las cotizaciones.
type SmartRouter struct {
	feed   ports.FeedGateway
	venues domain.VenueTable
	cfg    domain.RouterConfig
	obs    Observer
}

// New crea un router. Los venues desconocidos se rechazan aquí, no en cada llamada.
func New(feed ports.FeedGateway, venues domain.VenueTable, cfg domain.RouterConfig, opts ...Option) (*SmartRouter, error) {
	if feed == nil {
		return nil, fmt.Errorf("router.New: %w: nil feed gateway", domain.ErrInvalidInput)
	}
	if err := venues.Validate(); err != nil {
		return nil, fmt.Errorf("router.New: venues: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("router.New: config: %w", err)
	}
	r := &SmartRouter{feed: feed, venues: venues, cfg: cfg, obs: noopObserver{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config devuelve la configuración por defecto del router.
func (r *SmartRouter) Config() domain.RouterConfig { return r.cfg }

// FindBestRoute calcula el plan de ejecución con la configuración del router.
func (r *SmartRouter) FindBestRoute(ctx context.Context, req domain.RoutingRequest) (domain.RoutingResult, error) {
	return r.FindBestRouteWith(ctx, req, r.cfg)
}

// FindBestRouteWith calcula el plan de ejecución con una configuración explícita.
//
// Pasos: listar venues → cotizar en paralelo → construir candidatos → filtrar por
// slippage → rankear → (opcional) repartir entre venues → recomendar.
// cfg.Timeout acota todo, listado incluido.
// Los errores son *domain.RoutingError y llevan el resultado parcial.
func (r *SmartRouter) FindBestRouteWith(ctx context.Context, req domain.RoutingRequest, cfg domain.RouterConfig) (domain.RoutingResult, error) {
	start := time.Now()
	res := domain.RoutingResult{Request: req, Mode: cfg.Mode}

	res, err := r.route(ctx, req, cfg, res)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = errorOutcome(err)
	case res.IsSplit():
		outcome = "split"
	}
	r.obs.RouteDecided(cfg.Mode, outcome, time.Since(start))

	if err != nil {
		slog.Warn("routing failed",
			"market", req.MarketID,
			"side", req.Side,
			"size", req.Size,
			"mode", cfg.Mode,
			"dropped", len(res.Dropped),
			"err", err,
		)
		return res, err
	}

	slog.Info("route selected",
		"market", req.MarketID,
		"side", req.Side,
		"size", req.Size,
		"mode", cfg.Mode,
		"venues", res.Platforms(),
		"net_price", fmt.Sprintf("%.4f", res.NetPrice()),
		"reason", res.Reason,
		"candidates", len(res.AllRoutes),
		"dropped", len(res.Dropped),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

func (r *SmartRouter) route(ctx context.Context, req domain.RoutingRequest, cfg domain.RouterConfig, res domain.RoutingResult) (domain.RoutingResult, error) {
	if err := cfg.Validate(); err != nil {
		return res, fail(domain.ErrInvalidInput, err.Error(), res)
	}
	if err := req.Validate(); err != nil {
		return res, fail(domain.ErrInvalidInput, err.Error(), res)
	}

	// El deadline global cubre también el listado de venues.
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	listed, err := r.listVenues(ctx, req.MarketID)
	if err != nil {
		return res, fail(domain.ErrNoLiquidity, fmt.Sprintf("list venues for %q: %v", req.MarketID, err), res)
	}
	venues := r.configuredVenues(listed, &res)
	if len(venues) == 0 {
		return res, fail(domain.ErrInvalidInput, fmt.Sprintf("market %q unknown to every venue", req.MarketID), res)
	}

	quotes, drops := r.collectQuotes(ctx, req.MarketID, venues, cfg)
	res.Dropped = drops
	for _, d := range drops {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s dropped: %s", d.Platform, d.Reason))
	}
	if len(quotes) == 0 {
		return res, fail(domain.ErrNoLiquidity, fmt.Sprintf("no venue responded for %q", req.MarketID), res)
	}

	candidates := make([]domain.RouteCandidate, 0, len(quotes))
	for _, q := range quotes {
		candidates = append(candidates, buildCandidate(q, req.Size, req.Side, r.venues[q.platform], cfg))
	}

	// Se filtra antes de rankear: un venue fuera del cap no mueve la
	// normalización de balanced.
	viable := make([]domain.RouteCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.SlippagePercent <= cfg.MaxSlippage+slippageTolerance {
			viable = append(viable, c)
		}
	}

	if len(viable) > 0 {
		ranked := rankCandidates(viable, cfg, req.Side)
		best := ranked[0]
		res.AllRoutes = ranked
		res.BestRoute = &best
		res.Reason = dominantReason(ranked, cfg, req.Side)
		res.Recommendation = recommendSingle(req, ranked, res.Reason)
		return res, nil
	}

	// Ningún venue absorbe el size dentro del cap.
	ranked := rankCandidates(candidates, cfg, req.Side)
	res.AllRoutes = ranked
	top := ranked[0]
	res.BestRoute = &top

	if cfg.AllowSplitting {
		split, filled := planSplit(quotes, req, r.venues, cfg)
		if split != nil {
			res.BestRoute = nil
			res.Split = split
			res.Reason = reasonLiquidity
			res.Recommendation = recommendSplit(req, split, cfg)
			return res, nil
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"split exhausted all venues: %.4f of %.4f fillable within %.2f%% slippage",
			filled, req.Size, cfg.MaxSlippage))
		return res, fail(domain.ErrNoLiquidity, "combined depth cannot fill size within max slippage", res)
	}

	res.Warnings = append(res.Warnings, fmt.Sprintf(
		"target slippage exceeded: best venue %s at %.2f%% > %.2f%%",
		top.Platform, top.SlippagePercent, cfg.MaxSlippage))
	res.Recommendation = fmt.Sprintf("no venue fills %s %.4g within %.2f%% slippage; closest is %s at %.2f%%",
		req.Side, req.Size, cfg.MaxSlippage, top.Platform, top.SlippagePercent)
	return res, fail(domain.ErrNoLiquidity, "all venues exceed max slippage and splitting is disabled", res)
}

// configuredVenues descarta venues que no están en la tabla y elimina duplicados.
func (r *SmartRouter) configuredVenues(listed []domain.Platform, res *domain.RoutingResult) []domain.Platform {
	seen := make(map[domain.Platform]bool, len(listed))
	out := make([]domain.Platform, 0, len(listed))
	for _, p := range listed {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, ok := r.venues[p]; !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s lists the market but is not configured", p))
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func fail(kind error, msg string, partial domain.RoutingResult) error {
	return &domain.RoutingError{Kind: kind, Msg: msg, Partial: partial}
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrNoLiquidity):
		return "no_liquidity"
	}
	return "error"
}
