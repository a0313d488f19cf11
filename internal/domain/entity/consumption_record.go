package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Códigos de advertencia del procesamiento de un pedido.
const (
	WarningInsufficientStock  = "insufficient_stock"
	WarningRecipeNotFound     = "recipe_not_found"
	WarningIngredientNotFound = "ingredient_not_found"
	WarningInactiveIngredient = "inactive_ingredient"
)

// ConsumptionRecord marca persistida de idempotencia por pedido junto con su resultado.
// Se escribe en la misma transacción que los movimientos que protege.
type ConsumptionRecord struct {
	OrderNumber   string
	TriggerStatus string
	MovementCount int
	Warnings      []ConsumptionWarning
	ProcessedAt   time.Time
}

// ConsumptionWarning incidencia no bloqueante (faltante, receta o ingrediente ausente).
type ConsumptionWarning struct {
	Code           string          `json:"code"`
	SellableItemID string          `json:"sellable_item_id,omitempty"`
	IngredientID   string          `json:"ingredient_id,omitempty"`
	IngredientName string          `json:"ingredient_name,omitempty"`
	Requested      decimal.Decimal `json:"requested" swaggertype:"string"`
	Applied        decimal.Decimal `json:"applied" swaggertype:"string"`
	Shortfall      decimal.Decimal `json:"shortfall" swaggertype:"string"`
	Message        string          `json:"message"`
}
