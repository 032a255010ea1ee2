package ports

import (
	"context"

	"github.com/alejandrodnm/marketsim/internal/domain"
)

// Notifier entrega los resultados de una ronda al mundo exterior.
type Notifier interface {
	// RoundCompleted publica el resultado de la ronda: precio de cierre y
	// asignaciones por compañía. En la implementación de consola, imprime
	// una tabla formateada.
	RoundCompleted(ctx context.Context, result domain.RoundResult) error
}
