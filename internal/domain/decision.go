package domain

import (
	"fmt"
	"strings"
	"time"
)

// Intent es la señal de trading que recibe el core: el edge y la probabilidad
// vienen de fuera (estrategia), aquí solo se decide cuánto y dónde.
type Intent struct {
	MarketID       string
	Side           Side
	EdgeFraction   float64
	WinProbability float64
}

// Validate comprueba mercado y lado. Edge y probabilidad no se validan aquí:
// el sizing los clampa y lo explica en sus warnings.
func (i Intent) Validate() error {
	if strings.TrimSpace(i.MarketID) == "" {
		return fmt.Errorf("%w: empty market id", ErrInvalidInput)
	}
	if i.Side != SideBuy && i.Side != SideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidInput, i.Side)
	}
	return nil
}

// Decision agrupa el sizing y el plan de ejecución de un Intent.
// Err es nil si hay ruta; si no, Routing contiene el resultado parcial.
type Decision struct {
	ID        string
	Intent    Intent
	Sizing    SizingResult
	Routing   RoutingResult
	Err       error
	DecidedAt time.Time
}

// OK indica si la decisión produjo una ruta ejecutable.
func (d Decision) OK() bool { return d.Err == nil }

// DecisionRecord es la fila persistida de una decisión (vista plana para el journal).
type DecisionRecord struct {
	ID             string
	MarketID       string
	Side           Side
	EdgeFraction   float64
	WinProbability float64
	KellyFraction  float64
	PositionSize   float64
	Confidence     float64
	Mode           RouteMode
	Venues         []Platform
	NetPrice       float64
	EstimatedFees  float64
	Split          bool
	Recommendation string
	Error          string
	DecidedAt      time.Time
}

// Record aplana una Decision para persistirla.
func (d Decision) Record() DecisionRecord {
	rec := DecisionRecord{
		ID:             d.ID,
		MarketID:       d.Intent.MarketID,
		Side:           d.Intent.Side,
		EdgeFraction:   d.Intent.EdgeFraction,
		WinProbability: d.Intent.WinProbability,
		KellyFraction:  d.Sizing.KellyFraction,
		PositionSize:   d.Sizing.PositionSize,
		Confidence:     d.Sizing.Confidence,
		Mode:           d.Routing.Mode,
		Recommendation: d.Routing.Recommendation,
		DecidedAt:      d.DecidedAt,
	}
	// Una decisión fallida no tiene ruta, aunque el resultado parcial traiga candidatos.
	if d.Err != nil {
		rec.Error = d.Err.Error()
		return rec
	}
	rec.Venues = d.Routing.Platforms()
	rec.NetPrice = d.Routing.NetPrice()
	rec.EstimatedFees = d.Routing.EstimatedFees()
	rec.Split = d.Routing.IsSplit()
	return rec
}
