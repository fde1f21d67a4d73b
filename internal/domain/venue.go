package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Platform identifica un venue de ejecución. Es un conjunto cerrado:
// cualquier nombre fuera de esta lista se rechaza al cargar la configuración.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
	PlatformBinance    Platform = "binance"
	PlatformCoinbase   Platform = "coinbase"
	PlatformMEXC       Platform = "mexc"
)

// KnownPlatforms devuelve todos los venues soportados en orden estable.
func KnownPlatforms() []Platform {
	return []Platform{
		PlatformPolymarket,
		PlatformKalshi,
		PlatformBinance,
		PlatformCoinbase,
		PlatformMEXC,
	}
}

// ParsePlatform convierte un nombre (case-insensitive) a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownPlatforms() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, s)
}

// String implementa fmt.Stringer.
func (p Platform) String() string { return string(p) }

// VenueProfile agrupa los datos estáticos de un venue: fees y latencia típica.
type VenueProfile struct {
	Platform  Platform
	TakerBps  float64 // fee taker en basis points
	MakerBps  float64 // fee maker en basis points
	LatencyMs int     // latencia típica de ejecución
}

// FeeRate devuelve la tasa de fee como fracción (bps / 10000).
func (v VenueProfile) FeeRate(maker bool) float64 {
	if maker {
		return v.MakerBps / 10000
	}
	return v.TakerBps / 10000
}

// Validate comprueba que el perfil tenga valores coherentes.
func (v VenueProfile) Validate() error {
	if _, err := ParsePlatform(string(v.Platform)); err != nil {
		return err
	}
	if v.TakerBps < 0 || v.MakerBps < 0 {
		return fmt.Errorf("%w: %s: negative fee bps", ErrInvalidInput, v.Platform)
	}
	if v.LatencyMs < 0 {
		return fmt.Errorf("%w: %s: negative latency", ErrInvalidInput, v.Platform)
	}
	return nil
}

// VenueTable es la tabla estática platform → fees + latencia que consume el router.
type VenueTable map[Platform]VenueProfile

// DefaultVenueTable devuelve las tarifas públicas aproximadas de cada venue.
// Polymarket y Kalshi cobran sobre el notional del contrato; los exchanges
// cripto usan el tier base sin descuentos.
func DefaultVenueTable() VenueTable {
	return VenueTable{
		PlatformPolymarket: {Platform: PlatformPolymarket, TakerBps: 20, MakerBps: 0, LatencyMs: 250},
		PlatformKalshi:     {Platform: PlatformKalshi, TakerBps: 70, MakerBps: 17, LatencyMs: 150},
		PlatformBinance:    {Platform: PlatformBinance, TakerBps: 10, MakerBps: 2, LatencyMs: 50},
		PlatformCoinbase:   {Platform: PlatformCoinbase, TakerBps: 60, MakerBps: 40, LatencyMs: 120},
		PlatformMEXC:       {Platform: PlatformMEXC, TakerBps: 5, MakerBps: 0, LatencyMs: 80},
	}
}

// Validate valida cada perfil y que la clave coincida con el platform del perfil.
func (t VenueTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: venue table is empty", ErrInvalidInput)
	}
	for p, v := range t {
		if p != v.Platform {
			return fmt.Errorf("%w: venue key %q does not match profile %q", ErrInvalidInput, p, v.Platform)
		}
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Platforms devuelve los venues de la tabla ordenados por nombre.
func (t VenueTable) Platforms() []Platform {
	out := make([]Platform, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Quote es la cotización que devuelve el Feed Gateway para un mercado en un venue.
type Quote struct {
	Price          float64
	AvailableDepth float64 // tamaño disponible al precio cotizado, en las mismas unidades que el size
}

// Validate rechaza cotizaciones que no permiten construir un candidato.
func (q Quote) Validate() error {
	if !(q.Price > 0) || math.IsInf(q.Price, 0) {
		return fmt.Errorf("%w: non-positive price %.6f", ErrVenueUnavailable, q.Price)
	}
	if !(q.AvailableDepth > 0) || math.IsInf(q.AvailableDepth, 0) {
		return fmt.Errorf("%w: no depth", ErrVenueUnavailable)
	}
	return nil
}
