package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side es el lado de la orden.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide convierte "buy"/"sell" (case-insensitive) a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidInput, s)
}

// RouteMode selecciona el criterio de ranking del router.
type RouteMode string

const (
	ModeBestPrice     RouteMode = "best_price"
	ModeBestLiquidity RouteMode = "best_liquidity"
	ModeLowestFee     RouteMode = "lowest_fee"
	ModeBalanced      RouteMode = "balanced"
)

// ParseRouteMode valida un nombre de modo.
func ParseRouteMode(s string) (RouteMode, error) {
	switch m := RouteMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBestPrice, ModeBestLiquidity, ModeLowestFee, ModeBalanced:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown route mode %q", ErrInvalidInput, s)
}

// RoutingRequest es el trade que se quiere ejecutar.
type RoutingRequest struct {
	MarketID string
	Side     Side
	Size     float64
}

// Validate rechaza requests malformados.
func (r RoutingRequest) Validate() error {
	if strings.TrimSpace(r.MarketID) == "" {
		return fmt.Errorf("%w: empty market id", ErrInvalidInput)
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidInput, r.Side)
	}
	if !(r.Size > 0) {
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalidInput, r.Size)
	}
	return nil
}

// RouterConfig controla cómo se elige la ruta.
type RouterConfig struct {
	Mode           RouteMode
	MaxSlippage    float64 // porcentaje (5 = 5%)
	PreferMaker    bool
	AllowSplitting bool

	// ImpactPercent es el slippage (en %) de consumir el 100% del depth cotizado.
	// El modelo es lineal: slippage% = ImpactPercent × size / depth.
	ImpactPercent float64

	VenueTimeout time.Duration // timeout de cada consulta al feed
	Timeout      time.Duration // timeout total de FindBestRoute
	MaxParallel  int           // consultas concurrentes máximas (0 = una por venue)
}

// DefaultRouterConfig devuelve la configuración por defecto del router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Mode:          ModeBestPrice,
		MaxSlippage:   2.0,
		ImpactPercent: 5.0,
		VenueTimeout:  2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// Validate comprueba la configuración del router.
func (c RouterConfig) Validate() error {
	if _, err := ParseRouteMode(string(c.Mode)); err != nil {
		return err
	}
	if !(c.MaxSlippage > 0) {
		return fmt.Errorf("%w: max_slippage must be positive, got %v", ErrInvalidInput, c.MaxSlippage)
	}
	if !(c.ImpactPercent > 0) {
		return fmt.Errorf("%w: impact_percent must be positive, got %v", ErrInvalidInput, c.ImpactPercent)
	}
	if c.VenueTimeout < 0 || c.Timeout < 0 || c.MaxParallel < 0 {
		return fmt.Errorf("%w: negative timeout or parallelism", ErrInvalidInput)
	}
	return nil
}

// RouteCandidate es la ejecución estimada de todo (o parte) del size en un venue.
// NetPrice ya incluye fee y slippage en la dirección desfavorable al trade.
type RouteCandidate struct {
	Platform        Platform
	Size            float64
	QuotedPrice     float64
	AvailableDepth  float64
	NetPrice        float64
	EstimatedFees   float64
	SlippagePercent float64
	IsMaker         bool
	ExecutionTimeMs int
}

// SplitLeg es una pierna de una ejecución repartida entre venues.
type SplitLeg struct {
	Platform      Platform
	AllocatedSize float64
	Candidate     RouteCandidate // estimación recalculada al tamaño asignado
}

// SplitRoute reparte el size entre varios venues. Los legs suman el size pedido.
type SplitRoute struct {
	Legs            []SplitLeg
	NetPrice        float64 // ponderado por size
	EstimatedFees   float64 // suma
	SlippagePercent float64 // ponderado por size
	ExecutionTimeMs int     // el leg más lento
}

// TotalSize devuelve la suma de los tamaños asignados.
func (s SplitRoute) TotalSize() float64 {
	var total float64
	for _, l := range s.Legs {
		total += l.AllocatedSize
	}
	return total
}

// VenueDrop registra un venue excluido durante la recogida de cotizaciones.
type VenueDrop struct {
	Platform Platform
	Reason   string
}

// RoutingResult es el plan de ejecución. Si Split != nil la ruta elegida es el
// split; si no, BestRoute.
type RoutingResult struct {
	Request        RoutingRequest
	Mode           RouteMode
	BestRoute      *RouteCandidate
	Split          *SplitRoute
	AllRoutes      []RouteCandidate // ranking completo
	Dropped        []VenueDrop
	Warnings       []string
	Recommendation string
	Reason         string // motivo dominante: price | fee | liquidity | latency
}

// IsSplit indica si la ruta elegida reparte el size entre venues.
func (r RoutingResult) IsSplit() bool { return r.Split != nil }

// NetPrice devuelve el precio neto de la ruta elegida (0 si no hay).
func (r RoutingResult) NetPrice() float64 {
	switch {
	case r.Split != nil:
		return r.Split.NetPrice
	case r.BestRoute != nil:
		return r.BestRoute.NetPrice
	}
	return 0
}

// EstimatedFees devuelve los fees de la ruta elegida.
func (r RoutingResult) EstimatedFees() float64 {
	switch {
	case r.Split != nil:
		return r.Split.EstimatedFees
	case r.BestRoute != nil:
		return r.BestRoute.EstimatedFees
	}
	return 0
}

// Platforms devuelve los venues de la ruta elegida, en orden de asignación.
func (r RoutingResult) Platforms() []Platform {
	switch {
	case r.Split != nil:
		out := make([]Platform, len(r.Split.Legs))
		for i, l := range r.Split.Legs {
			out[i] = l.Platform
		}
		return out
	case r.BestRoute != nil:
		return []Platform{r.BestRoute.Platform}
	}
	return nil
}
