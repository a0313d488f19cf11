package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// IngredientRepository define el puerto de persistencia de ingredientes y su saldo materializado.
type IngredientRepository interface {
	// Create inserta el ingrediente con saldo 0; el saldo inicial entra por el libro.
	Create(ctx context.Context, ingredient *entity.Ingredient) error
	GetByID(ctx context.Context, id string) (*entity.Ingredient, error)
	// GetForUpdate bloquea la fila del ingrediente hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.Ingredient, error)
	// FindByName busca sin distinguir mayúsculas, ordenado por ID.
	FindByName(ctx context.Context, name string) ([]*entity.Ingredient, error)
	ListLowStock(ctx context.Context) ([]*entity.Ingredient, error)
	// ListExpiring ingredientes con fecha de vencimiento en [from, until), por fecha ascendente.
	ListExpiring(ctx context.Context, from, until time.Time) ([]*entity.Ingredient, error)
	// UpdateStock escribe el nuevo saldo solo si el actual sigue siendo expected;
	// en caso contrario devuelve domain.ErrConcurrencyConflict.
	UpdateStock(ctx context.Context, id string, expected, newStock, unitCost decimal.Decimal) error
}
