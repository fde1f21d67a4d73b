package decision

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/tradecore/internal/domain"
	"github.com/alejandrodnm/tradecore/internal/ports"
)

// Sizer es la parte del Position Sizing Engine que usa el core.
type Sizer interface {
	Calculate(edgeFraction, winProbability float64) domain.SizingResult
	RecordTrade(outcome domain.Outcome, pnl float64)
	State() domain.SizingState
}

// Router es la parte del Smart Order Router que usa el core.
type Router interface {
	FindBestRoute(ctx context.Context, req domain.RoutingRequest) (domain.RoutingResult, error)
}

// Observer recibe cada decisión y cada actualización de estado del sizing.
type Observer interface {
	DecisionMade(d domain.Decision)
	SizingUpdated(s domain.SizingState)
}

type noopObserver struct{}

func (noopObserver) DecisionMade(domain.Decision)      {}
func (noopObserver) SizingUpdated(domain.SizingState) {}

// Option configura un Core.
type Option func(*Core)

// WithJournal persiste cada decisión. Los fallos del journal se loguean, no se propagan.
func WithJournal(j ports.DecisionJournal) Option {
	return func(c *Core) { c.journal = j }
}

// WithNotifier reporta las decisiones (consola, etc.).
func WithNotifier(n ports.Notifier) Option {
	return func(c *Core) { c.notifier = n }
}

// WithObserver instala un observer de métricas.
func WithObserver(o Observer) Option {
	return func(c *Core) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithWorkers fija el número de intents que DecideBatch procesa en paralelo.
func WithWorkers(n int) Option {
	return func(c *Core) { c.workers = n }
}

// Core compone sizing y routing: dado un intent decide cuánto operar y dónde.
type Core struct {
	sizer    Sizer
	router   Router
	journal  ports.DecisionJournal
	notifier ports.Notifier
	obs      Observer
	workers  int
	now      func() time.Time

	// settleMu serializa Settle con la publicación del estado resultante.
	settleMu sync.Mutex
}

// New crea el core. journal y notifier son opcionales.
func New(sizer Sizer, router Router, opts ...Option) (*Core, error) {
	if sizer == nil || router == nil {
		return nil, fmt.Errorf("decision.New: %w: sizer and router are required", domain.ErrInvalidInput)
	}
	c := &Core{
		sizer:  sizer,
		router: router,
		obs:    noopObserver{},
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers <= 0 {
		c.workers = runtime.NumCPU()
	}
	return c, nil
}

// Decide dimensiona y enruta un intent, lo registra y lo notifica.
// El error devuelto es el mismo que Decision.Err.
func (c *Core) Decide(ctx context.Context, intent domain.Intent) (domain.Decision, error) {
	d := c.decide(ctx, intent)
	c.notify(ctx, []domain.Decision{d})
	return d, d.Err
}

// DecideBatch procesa varios intents en paralelo y notifica todas las decisiones
// de una vez. El orden del resultado es el de los intents.
func (c *Core) DecideBatch(ctx context.Context, intents []domain.Intent) []domain.Decision {
	decisions := make([]domain.Decision, len(intents))

	workCh := make(chan int, len(intents))
	for i := range intents {
		workCh <- i
	}
	close(workCh)

	workers := min(c.workers, len(intents))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				decisions[i] = c.decide(ctx, intents[i])
			}
		}()
	}
	wg.Wait()

	ok := 0
	for _, d := range decisions {
		if d.OK() {
			ok++
		}
	}
	slog.Info("batch decided",
		"intents", len(intents),
		"routed", ok,
		"failed", len(intents)-ok,
		"workers", workers,
	)

	c.notify(ctx, decisions)
	return decisions
}

func (c *Core) decide(ctx context.Context, intent domain.Intent) domain.Decision {
	d := domain.Decision{
		ID:        uuid.NewString(),
		Intent:    intent,
		DecidedAt: c.now(),
	}

	req := domain.RoutingRequest{MarketID: intent.MarketID, Side: intent.Side}
	d.Routing = domain.RoutingResult{Request: req}

	if err := intent.Validate(); err != nil {
		d.Err = fmt.Errorf("decision.Decide: %w", err)
		c.finish(ctx, d)
		return d
	}

	d.Sizing = c.sizer.Calculate(intent.EdgeFraction, intent.WinProbability)
	if !(d.Sizing.PositionSize > 0) {
		d.Err = fmt.Errorf("decision.Decide: %w: recommended position size is zero", domain.ErrInvalidInput)
		c.finish(ctx, d)
		return d
	}

	req.Size = d.Sizing.PositionSize
	routing, err := c.router.FindBestRoute(ctx, req)
	d.Routing = routing
	if err != nil {
		d.Err = fmt.Errorf("decision.Decide: route: %w", err)
	}
	c.finish(ctx, d)
	return d
}

// finish journaliza y publica métricas. El journal es best effort.
func (c *Core) finish(ctx context.Context, d domain.Decision) {
	c.obs.DecisionMade(d)

	attrs := []any{
		"id", d.ID,
		"market", d.Intent.MarketID,
		"side", d.Intent.Side,
		"kelly", d.Sizing.KellyFraction,
		"size", d.Sizing.PositionSize,
	}
	if d.Err != nil {
		slog.Warn("decision without route", append(attrs, "err", d.Err)...)
	} else {
		slog.Info("decision", append(attrs,
			"venues", d.Routing.Platforms(),
			"net_price", fmt.Sprintf("%.4f", d.Routing.NetPrice()),
		)...)
	}

	if c.journal == nil {
		return
	}
	if err := c.journal.SaveDecision(ctx, d); err != nil {
		slog.Warn("journal save failed", "id", d.ID, "err", err)
	}
}

func (c *Core) notify(ctx context.Context, decisions []domain.Decision) {
	if c.notifier == nil || len(decisions) == 0 {
		return
	}
	if err := c.notifier.Notify(ctx, decisions); err != nil {
		slog.Warn("notify failed", "decisions", len(decisions), "err", err)
	}
}

// Settle registra el resultado realizado de un trade y devuelve el estado
// actualizado del sizing.
func (c *Core) Settle(outcome domain.Outcome, pnl float64) domain.SizingState {
	c.settleMu.Lock()
	defer c.settleMu.Unlock()

	c.sizer.RecordTrade(outcome, pnl)
	state := c.sizer.State()
	c.obs.SizingUpdated(state)

	slog.Info("trade settled",
		"outcome", outcome,
		"pnl", pnl,
		"bankroll", state.Bankroll,
		"drawdown", fmt.Sprintf("%.4f", state.CurrentDrawdown),
		"win_rate", fmt.Sprintf("%.2f", state.RecentWinRate),
	)
	return state
}

// State devuelve el estado actual del sizing.
func (c *Core) State() domain.SizingState { return c.sizer.State() }

// Recent devuelve las decisiones journalizadas desde since (más recientes primero).
func (c *Core) Recent(ctx context.Context, since time.Time, limit int) ([]domain.DecisionRecord, error) {
	if c.journal == nil {
		return nil, nil
	}
	recs, err := c.journal.RecentDecisions(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("decision.Recent: %w", err)
	}
	return recs, nil
}
