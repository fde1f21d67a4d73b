package router

// quotes.go: recogida concurrente de cotizaciones.
//
// Un venue lento o caído nunca bloquea la decisión: cada consulta tiene su propio
// timeout y el conjunto tiene un deadline global. Al vencer, se usa lo que haya llegado.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// venueQuote es una cotización válida de un venue.
type venueQuote struct {
	platform domain.Platform
	quote    domain.Quote
}

type quoteResult struct {
	platform domain.Platform
	quote    domain.Quote
	err      error
	elapsed  time.Duration
}

// listVenues consulta el catálogo sin pasar del deadline de ctx, aunque el
// gateway ignore el contexto.
func (r *SmartRouter) listVenues(ctx context.Context, marketID string) ([]domain.Platform, error) {
	type listing struct {
		venues []domain.Platform
		err    error
	}
	ch := make(chan listing, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- listing{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		v, err := r.feed.Venues(ctx, marketID)
		ch <- listing{venues: v, err: err}
	}()

	select {
	case l := <-ch:
		return l.venues, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// collectQuotes consulta todos los venues en paralelo (a lo sumo MaxParallel a la vez).
// El deadline global llega en ctx.
// Los fallos no se propagan: cada venue que no responde, falla o devuelve una
// cotización inválida queda en drops con su motivo.
func (r *SmartRouter) collectQuotes(
	ctx context.Context,
	marketID string,
	venues []domain.Platform,
	cfg domain.RouterConfig,
) ([]venueQuote, []domain.VenueDrop) {
	resultCh := make(chan quoteResult, len(venues))

	var g errgroup.Group
	if cfg.MaxParallel > 0 {
		g.SetLimit(cfg.MaxParallel)
	}

	// g.Go bloquea al alcanzar el límite: se alimenta desde otra goroutine para
	// que el colector pueda abandonar por deadline.
	go func() {
		for _, p := range venues {
			g.Go(func() error {
				resultCh <- r.fetchQuote(ctx, marketID, p, cfg.VenueTimeout)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	pending := make(map[domain.Platform]bool, len(venues))
	for _, p := range venues {
		pending[p] = true
	}

	quotes := make([]venueQuote, 0, len(venues))
	var drops []domain.VenueDrop

	handle := func(res quoteResult) {
		delete(pending, res.platform)
		r.obs.QuoteLatency(res.platform, res.elapsed)
		if res.err == nil {
			res.err = res.quote.Validate()
		}
		if res.err != nil {
			slog.Debug("venue dropped",
				"platform", res.platform,
				"market", marketID,
				"elapsed", res.elapsed,
				"err", res.err,
			)
			drops = append(drops, domain.VenueDrop{Platform: res.platform, Reason: res.err.Error()})
			r.obs.VenueDropped(res.platform, dropReason(res.err))
			return
		}
		quotes = append(quotes, venueQuote{platform: res.platform, quote: res.quote})
	}

collect:
	for {
		select {
		case res, ok := <-resultCh:
			if !ok {
				break collect
			}
			handle(res)
		case <-ctx.Done():
			// Vaciar lo que ya esté en el buffer antes de dar el resto por perdido.
			for {
				select {
				case res, ok := <-resultCh:
					if !ok {
						break collect
					}
					handle(res)
				default:
					late := make([]domain.Platform, 0, len(pending))
					for p := range pending {
						late = append(late, p)
					}
					sort.Slice(late, func(i, j int) bool { return late[i] < late[j] })
					for _, p := range late {
						drops = append(drops, domain.VenueDrop{
							Platform: p,
							Reason:   fmt.Sprintf("no response before routing deadline: %v", ctx.Err()),
						})
						r.obs.VenueDropped(p, "deadline")
					}
					break collect
				}
			}
		}
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].platform < quotes[j].platform })
	sort.SliceStable(drops, func(i, j int) bool { return drops[i].Platform < drops[j].Platform })

	slog.Debug("quotes collected",
		"market", marketID,
		"venues", len(venues),
		"quotes", len(quotes),
		"dropped", len(drops),
	)
	return quotes, drops
}

// fetchQuote consulta un venue con su propio timeout. Un feed que ignora el
// contexto no retiene al router: se abandona al vencer el timeout.
func (r *SmartRouter) fetchQuote(ctx context.Context, marketID string, p domain.Platform, timeout time.Duration) quoteResult {
	start := time.Now()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type out struct {
		quote domain.Quote
		err   error
	}
	ch := make(chan out, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- out{err: fmt.Errorf("%w: feed panic: %v", domain.ErrVenueUnavailable, rec)}
			}
		}()
		q, err := r.feed.GetQuote(ctx, marketID, p)
		ch <- out{quote: q, err: err}
	}()

	select {
	case o := <-ch:
		return quoteResult{platform: p, quote: o.quote, err: o.err, elapsed: time.Since(start)}
	case <-ctx.Done():
		return quoteResult{
			platform: p,
			err:      fmt.Errorf("%w: %w", domain.ErrVenueUnavailable, ctx.Err()),
			elapsed:  time.Since(start),
		}
	}
}

// dropReason clasifica el motivo para etiquetas de métricas (cardinalidad acotada).
func dropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrVenueUnavailable):
		return "unavailable"
	}
	return "error"
}
