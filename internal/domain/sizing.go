package domain

import "fmt"

// SizingConfig controla el cálculo dinámico de Kelly.
// Todas las fracciones en (0,1] salvo LookbackTrades (entero positivo).
type SizingConfig struct {
	BaseMultiplier    float64 // fracción de Kelly aplicada (0.25 = quarter Kelly)
	MaxKelly          float64 // techo de la fracción final
	MinKelly          float64 // suelo de la fracción final
	LookbackTrades    int     // tamaño de la ventana de performance
	MaxDrawdown       float64 // drawdown a partir del cual se activa el throttle
	DrawdownReduction float64 // multiplicador aplicado cuando se supera MaxDrawdown
}

// DefaultSizingConfig devuelve una configuración conservadora (quarter Kelly).
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{
		BaseMultiplier:    0.25,
		MaxKelly:          0.25,
		MinKelly:          0.01,
		LookbackTrades:    20,
		MaxDrawdown:       0.20,
		DrawdownReduction: 0.5,
	}
}

// Validate comprueba rangos e invariante MinKelly <= MaxKelly <= 1.
// MinKelly puede ser 0 (sin suelo).
func (c SizingConfig) Validate() error {
	check := func(name string, v float64) error {
		if !(v > 0 && v <= 1) {
			return fmt.Errorf("%w: %s must be in (0,1], got %v", ErrInvalidInput, name, v)
		}
		return nil
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"base_multiplier", c.BaseMultiplier},
		{"max_kelly", c.MaxKelly},
		{"max_drawdown", c.MaxDrawdown},
		{"drawdown_reduction", c.DrawdownReduction},
	} {
		if err := check(f.name, f.v); err != nil {
			return err
		}
	}
	if c.MinKelly < 0 || c.MinKelly > c.MaxKelly {
		return fmt.Errorf("%w: min_kelly must be in [0, max_kelly], got %v", ErrInvalidInput, c.MinKelly)
	}
	if c.LookbackTrades <= 0 {
		return fmt.Errorf("%w: lookback_trades must be positive, got %d", ErrInvalidInput, c.LookbackTrades)
	}
	return nil
}

// Outcome es el resultado realizado de un trade.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// ParseOutcome convierte "win"/"loss" a Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeWin, OutcomeLoss:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, s)
}

// TradeOutcome es una entrada de la ventana de performance.
type TradeOutcome struct {
	Win bool
	PnL float64
}

// SizingState es un snapshot inmutable del estado del calculador.
// Window está ordenada de más antiguo a más reciente y es una copia.
type SizingState struct {
	Bankroll        float64
	PeakBankroll    float64
	CurrentDrawdown float64
	RecentWinRate   float64
	WinStreak       int
	LossStreak      int
	TotalTrades     int
	Window          []TradeOutcome
}

// Adjustment es un paso del stack de ajustes aplicado sobre Kelly.
type Adjustment struct {
	Reason     string
	Multiplier float64
}

// Razones de ajuste estables (se usan en logs y tests).
const (
	ReasonDrawdownGuard    = "drawdown guard"
	ReasonLossStreak       = "loss streak"
	ReasonSampleConfidence = "sample confidence"
)

// SizingResult es la recomendación de tamaño para un trade.
type SizingResult struct {
	KellyFraction float64 // fracción final, en [MinKelly, MaxKelly]
	RawFraction   float64 // SimpleKelly antes de ajustes y clamps
	PositionSize  float64 // KellyFraction × bankroll
	Confidence    float64 // [0,1]
	Adjustments   []Adjustment
	Warnings      []string
}
