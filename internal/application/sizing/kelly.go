package sizing

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

const (
	// maxWinProbability es el límite superior al que se clampa una probabilidad >= 1.
	maxWinProbability = 0.999

	lossStreakGrace  = 2   // pérdidas consecutivas toleradas sin throttle
	lossStreakFactor = 0.9 // multiplicador por cada pérdida extra
	lossStreakFloor  = 0.5 // multiplicador mínimo acumulado por racha
)

// DynamicKelly calcula tamaños de posición con Kelly fraccional ajustado por
// drawdown, rachas de pérdidas y tamaño de muestra.
//
// Single-writer: Calculate, RecordTrade y State se serializan con un mutex.
// Cada instancia (por estrategia) es independiente; no hay estado global.
type DynamicKelly struct {
	cfg domain.SizingConfig

	mu         sync.Mutex
	bankroll   float64
	peak       float64
	drawdown   float64
	winStreak  int
	lossStreak int
	total      int
	window     *tradeWindow
}

// New crea un calculador para un bankroll inicial.
func New(initialBankroll float64, cfg domain.SizingConfig) (*DynamicKelly, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sizing.New: %w", err)
	}
	if !(initialBankroll > 0) {
		return nil, fmt.Errorf("sizing.New: %w: initial bankroll must be positive, got %v",
			domain.ErrInvalidInput, initialBankroll)
	}
	return &DynamicKelly{
		cfg:      cfg,
		bankroll: initialBankroll,
		peak:     initialBankroll,
		window:   newTradeWindow(cfg.LookbackTrades),
	}, nil
}

// Config devuelve la configuración con la que se creó el calculador.
func (k *DynamicKelly) Config() domain.SizingConfig { return k.cfg }

// Calculate devuelve la recomendación de tamaño para un edge y una probabilidad.
// Nunca falla: inputs fuera de rango se clampan y se explican en Warnings.
func (k *DynamicKelly) Calculate(edgeFraction, winProbability float64) domain.SizingResult {
	k.mu.Lock()
	defer k.mu.Unlock()

	var res domain.SizingResult
	edge, p := k.clampInputs(edgeFraction, winProbability, &res)

	raw := domain.SimpleKelly(edge, p, k.cfg.BaseMultiplier)
	res.RawFraction = raw
	f := raw

	// 1. Drawdown guard
	if k.drawdown > k.cfg.MaxDrawdown {
		f *= k.cfg.DrawdownReduction
		res.Adjustments = append(res.Adjustments, domain.Adjustment{
			Reason:     domain.ReasonDrawdownGuard,
			Multiplier: k.cfg.DrawdownReduction,
		})
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"reduced due to drawdown (%.1f%% from peak, limit %.1f%%)",
			k.drawdown*100, k.cfg.MaxDrawdown*100))
	}

	// 2. Loss streak: 0.9 por cada pérdida más allá de la segunda, suelo 0.5
	if extra := k.lossStreak - lossStreakGrace; extra > 0 {
		m := math.Max(lossStreakFloor, math.Pow(lossStreakFactor, float64(extra)))
		f *= m
		res.Adjustments = append(res.Adjustments, domain.Adjustment{
			Reason:     domain.ReasonLossStreak,
			Multiplier: m,
		})
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"reduced after %d consecutive losses", k.lossStreak))
	}

	// 3. Sample confidence: poca historia → escalar por observed/lookback
	if n := k.window.len(); n < k.cfg.LookbackTrades {
		m := float64(n) / float64(k.cfg.LookbackTrades)
		f *= m
		res.Adjustments = append(res.Adjustments, domain.Adjustment{
			Reason:     domain.ReasonSampleConfidence,
			Multiplier: m,
		})
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"insufficient trade history (%d/%d trades)", n, k.cfg.LookbackTrades))
	}

	switch {
	case f > k.cfg.MaxKelly:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"capped at max Kelly (%.4f → %.4f)", f, k.cfg.MaxKelly))
		f = k.cfg.MaxKelly
	case f < k.cfg.MinKelly:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"raised to min Kelly (%.4f → %.4f)", f, k.cfg.MinKelly))
		f = k.cfg.MinKelly
	}
	res.KellyFraction = f

	bankroll := k.bankroll
	if bankroll <= 0 {
		res.Warnings = append(res.Warnings, "bankroll exhausted")
		bankroll = 0
	}
	res.PositionSize = f * bankroll

	confidence := 1.0
	for _, a := range res.Adjustments {
		confidence *= a.Multiplier
	}
	confidence = domain.Clamp(confidence, 0, 1)
	if k.drawdown > 0 {
		confidence *= 1 - k.drawdown
	}
	res.Confidence = domain.Clamp(confidence, 0, 1)

	slog.Debug("sizing calculated",
		"edge", edge,
		"win_prob", p,
		"raw", raw,
		"kelly", res.KellyFraction,
		"size", res.PositionSize,
		"confidence", res.Confidence,
		"adjustments", len(res.Adjustments),
	)
	return res
}

// clampInputs lleva edge a [0,∞) y la probabilidad a [0, maxWinProbability].
func (k *DynamicKelly) clampInputs(edge, p float64, res *domain.SizingResult) (float64, float64) {
	switch {
	case math.IsNaN(edge) || math.IsInf(edge, 0):
		res.Warnings = append(res.Warnings, fmt.Sprintf("edge %v is not finite, using 0", edge))
		edge = 0
	case edge < 0:
		res.Warnings = append(res.Warnings, fmt.Sprintf("negative edge %.4f clamped to 0", edge))
		edge = 0
	}

	switch {
	case math.IsNaN(p):
		res.Warnings = append(res.Warnings, "win probability is NaN, using 0")
		p = 0
	case p < 0:
		res.Warnings = append(res.Warnings, fmt.Sprintf("win probability %.4f clamped to 0", p))
		p = 0
	case p >= 1:
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"win probability %.4f clamped to %.3f", p, maxWinProbability))
		p = maxWinProbability
	}
	return edge, p
}

// RecordTrade registra el resultado realizado de un trade y actualiza bankroll,
// peak, drawdown, ventana y rachas.
func (k *DynamicKelly) RecordTrade(outcome domain.Outcome, pnl float64) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
		slog.Warn("sizing: ignoring non-finite pnl", "pnl", pnl, "outcome", outcome)
		pnl = 0
	}

	k.bankroll += pnl
	if k.bankroll > k.peak {
		k.peak = k.bankroll
	}
	k.drawdown = 0
	if k.peak > 0 {
		k.drawdown = domain.Clamp((k.peak-k.bankroll)/k.peak, 0, 1)
	}

	win := outcome == domain.OutcomeWin
	k.window.push(domain.TradeOutcome{Win: win, PnL: pnl})
	k.total++
	if win {
		k.winStreak++
		k.lossStreak = 0
	} else {
		k.lossStreak++
		k.winStreak = 0
	}

	slog.Debug("sizing: trade recorded",
		"outcome", outcome,
		"pnl", pnl,
		"bankroll", k.bankroll,
		"drawdown", k.drawdown,
		"win_streak", k.winStreak,
		"loss_streak", k.lossStreak,
	)
}

// State devuelve un snapshot inmutable del estado actual.
func (k *DynamicKelly) State() domain.SizingState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return domain.SizingState{
		Bankroll:        k.bankroll,
		PeakBankroll:    k.peak,
		CurrentDrawdown: k.drawdown,
		RecentWinRate:   k.window.winRate(),
		WinStreak:       k.winStreak,
		LossStreak:      k.lossStreak,
		TotalTrades:     k.total,
		Window:          k.window.snapshot(),
	}
}
