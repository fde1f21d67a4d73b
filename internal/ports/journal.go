package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// DecisionJournal persiste las decisiones de sizing + routing para auditoría.
// No guarda outcomes de trades: el histórico de trades vive solo en la
// ventana en memoria del calculador.
type DecisionJournal interface {
	SaveDecision(ctx context.Context, d domain.Decision) error

	// RecentDecisions devuelve las decisiones desde `since`, más recientes primero.
	RecentDecisions(ctx context.Context, since time.Time, limit int) ([]domain.DecisionRecord, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
