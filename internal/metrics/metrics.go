package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// Collectors agrupa las métricas del core en un registry propio.
// Implementa router.Observer y decision.Observer.
type Collectors struct {
	Registry *prometheus.Registry

	routeDecisions *prometheus.CounterVec
	routeDuration  *prometheus.HistogramVec
	quoteLatency   *prometheus.HistogramVec
	venueDrops     *prometheus.CounterVec
	decisions      *prometheus.CounterVec

	bankroll      prometheus.Gauge
	drawdown      prometheus.Gauge
	lossStreak    prometheus.Gauge
	kellyFraction prometheus.Gauge
	positionSize  prometheus.Gauge
}

// New crea y registra todas las métricas en un registry nuevo.
func New() *Collectors {
	c := &Collectors{
		Registry: prometheus.NewRegistry(),

		routeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_route_decisions_total",
			Help: "Routing calls by mode and outcome (ok, split, no_liquidity, invalid_input)",
		}, []string{"mode", "outcome"}),

		routeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradecore_route_duration_seconds",
			Help:    "End-to-end FindBestRoute latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),

		quoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradecore_quote_latency_seconds",
			Help:    "Time to obtain a quote from a venue",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"platform"}),

		venueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_venue_drops_total",
			Help: "Venues excluded from a routing call",
		}, []string{"platform", "reason"}),

		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_decisions_total",
			Help: "Trade decisions by result",
		}, []string{"result"}),

		bankroll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_bankroll",
			Help: "Current bankroll tracked by the sizing engine",
		}),
		drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_drawdown_ratio",
			Help: "Current drawdown from peak bankroll (0..1)",
		}),
		lossStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_loss_streak",
			Help: "Consecutive losing trades",
		}),
		kellyFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_kelly_fraction",
			Help: "Last recommended Kelly fraction",
		}),
		positionSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradecore_position_size",
			Help: "Last recommended position size",
		}),
	}

	c.Registry.MustRegister(
		c.routeDecisions,
		c.routeDuration,
		c.quoteLatency,
		c.venueDrops,
		c.decisions,
		c.bankroll,
		c.drawdown,
		c.lossStreak,
		c.kellyFraction,
		c.positionSize,
	)
	return c
}

func (c *Collectors) VenueDropped(platform domain.Platform, reason string) {
	c.venueDrops.WithLabelValues(string(platform), reason).Inc()
}

func (c *Collectors) QuoteLatency(platform domain.Platform, d time.Duration) {
	c.quoteLatency.WithLabelValues(string(platform)).Observe(d.Seconds())
}

func (c *Collectors) RouteDecided(mode domain.RouteMode, outcome string, d time.Duration) {
	c.routeDecisions.WithLabelValues(string(mode), outcome).Inc()
	c.routeDuration.WithLabelValues(string(mode)).Observe(d.Seconds())
}

// DecisionMade cuenta una decisión y publica el último sizing.
func (c *Collectors) DecisionMade(d domain.Decision) {
	result := "routed"
	switch {
	case d.Err != nil && d.Sizing.PositionSize <= 0:
		result = "no_size"
	case d.Err != nil:
		result = "no_route"
	case d.Routing.IsSplit():
		result = "split"
	}
	c.decisions.WithLabelValues(result).Inc()
	c.kellyFraction.Set(d.Sizing.KellyFraction)
	c.positionSize.Set(d.Sizing.PositionSize)
}

// SizingUpdated publica el estado del sizing tras registrar un trade.
func (c *Collectors) SizingUpdated(s domain.SizingState) {
	c.bankroll.Set(s.Bankroll)
	c.drawdown.Set(s.CurrentDrawdown)
	c.lossStreak.Set(float64(s.LossStreak))
}
