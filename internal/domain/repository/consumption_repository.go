package repository

import (
	"context"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// ConsumptionRepository persiste la marca de idempotencia por pedido.
type ConsumptionRepository interface {
	// TryMark inserta la marca; devuelve false si el pedido ya estaba procesado.
	// Dentro de una transacción, un segundo insert concurrente espera al primero.
	TryMark(ctx context.Context, orderNumber, triggerStatus string) (bool, error)
	SaveOutcome(ctx context.Context, record *entity.ConsumptionRecord) error
	Get(ctx context.Context, orderNumber string) (*entity.ConsumptionRecord, error)
}
