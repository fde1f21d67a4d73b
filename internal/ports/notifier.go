package ports

import (
	"context"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// Notifier presenta las decisiones al usuario.
type Notifier interface {
	// Notify muestra sizing y plan de ejecución de cada decisión.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, decisions []domain.Decision) error
}
