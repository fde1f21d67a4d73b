package domain

import "errors"

// Taxonomía de errores del core. Los adaptadores y la aplicación envuelven
// estos sentinels con fmt.Errorf("...: %w", ...) para que errors.Is funcione.
var (
	// ErrInvalidInput: request malformado. Se devuelve al caller, nunca se reintenta.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVenueUnavailable: fallo transitorio de un venue. Se recupera localmente
	// excluyendo el venue; solo sale al caller si vacía el set de candidatos.
	ErrVenueUnavailable = errors.New("venue unavailable")

	// ErrNoLiquidity: no existe ninguna ruta viable. El caller decide si reintenta.
	ErrNoLiquidity = errors.New("no liquidity")
)

// RoutingError acompaña un fallo del router con el resultado parcial calculado
// hasta ese momento (candidatos, drops, warnings) para facilitar el diagnóstico.
type RoutingError struct {
	Kind    error
	Msg     string
	Partial RoutingResult
}

func (e *RoutingError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *RoutingError) Unwrap() error { return e.Kind }

// PartialResult extrae el resultado parcial de un error del router, si lo hay.
func PartialResult(err error) (RoutingResult, bool) {
	var re *RoutingError
	if errors.As(err, &re) {
		return re.Partial, true
	}
	return RoutingResult{}, false
}
