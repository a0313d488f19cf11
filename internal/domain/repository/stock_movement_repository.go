package repository

import (
	"context"
	"time"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// MovementFilter acota una página del historial de un ingrediente.
// AfterSeq permite paginar por cursor en orden de creación.
type MovementFilter struct {
	IngredientID string
	From         *time.Time
	To           *time.Time
	AfterSeq     int64
	Limit        int
}

// StockMovementRepository puerto del libro de movimientos (solo inserción).
type StockMovementRepository interface {
	// Create asigna ID y Seq (siguiente de la serie del ingrediente) y persiste el movimiento.
	Create(ctx context.Context, movement *entity.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
	CountByReference(ctx context.Context, reference string) (int, error)
}
