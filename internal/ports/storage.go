package ports

import (
	"context"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// History persiste los resultados de cada ronda completada. El engine nunca
// hace I/O por su cuenta: este puerto se conecta fuera, y puede ser nil.
type History interface {
	// SaveRound persiste el resultado de una ronda cerrada.
	SaveRound(ctx context.Context, result domain.RoundResult) error

	// GetRounds devuelve las rondas registradas de una sesión, en orden.
	GetRounds(ctx context.Context, sessionID string) ([]domain.RoundResult, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
