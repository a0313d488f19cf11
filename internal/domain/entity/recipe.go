package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe vincula un producto vendible con los insumos que consume por porción.
type Recipe struct {
	ID             string
	Name           string
	SellableItemID string
	Servings       int
	IsActive       bool
	Lines          []RecipeLine
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecipeLine cantidad de un ingrediente por porción servida.
// El ingrediente se resuelve a ID al crear la receta, no en cada pedido.
type RecipeLine struct {
	ID           string
	IngredientID string
	Quantity     decimal.Decimal
	Notes        string
}
