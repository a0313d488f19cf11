package repository

import (
	"context"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// RecipeRepository puerto de recetas y sus líneas.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *entity.Recipe) error
	GetByID(ctx context.Context, id string) (*entity.Recipe, error)
	// GetBySellableItem devuelve la receta activa del producto vendible o nil.
	GetBySellableItem(ctx context.Context, sellableItemID string) (*entity.Recipe, error)
}
