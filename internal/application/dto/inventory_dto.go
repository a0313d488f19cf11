package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockAdjustmentRequest body para POST /api/ingredients/:id/deduct y /waste.
type StockAdjustmentRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" validate:"gt=0"`
	Reason string          `json:"reason" validate:"max=500"`
}

// StocktakeRequest body para POST /api/ingredients/:id/stocktake.
type StocktakeRequest struct {
	Counted decimal.Decimal `json:"counted" swaggertype:"string" validate:"gte=0"`
	Reason  string          `json:"reason" validate:"max=500"`
}

// StockChangeResponse cantidad aplicada y saldo resultante.
type StockChangeResponse struct {
	IngredientID  string          `json:"ingredient_id"`
	Requested     decimal.Decimal `json:"requested" swaggertype:"string"`
	Applied       decimal.Decimal `json:"applied" swaggertype:"string"`
	Shortfall     decimal.Decimal `json:"shortfall" swaggertype:"string"`
	PreviousStock decimal.Decimal `json:"previous_stock" swaggertype:"string"`
	NewStock      decimal.Decimal `json:"new_stock" swaggertype:"string"`
	Reference     string          `json:"reference,omitempty"`
}

// MovementDTO movimiento del libro para respuestas JSON.
type MovementDTO struct {
	ID            string          `json:"id"`
	Seq           int64           `json:"seq"`
	IngredientID  string          `json:"ingredient_id"`
	Kind          string          `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity" swaggertype:"string"`
	PreviousStock decimal.Decimal `json:"previous_stock" swaggertype:"string"`
	NewStock      decimal.Decimal `json:"new_stock" swaggertype:"string"`
	UnitCost      decimal.Decimal `json:"unit_cost" swaggertype:"string"`
	TotalValue    decimal.Decimal `json:"total_value" swaggertype:"string"`
	Reference     string          `json:"reference"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReorderSuggestionDTO ingrediente bajo su stock mínimo con la cantidad sugerida de pedido.
type ReorderSuggestionDTO struct {
	IngredientID      string          `json:"ingredient_id"`
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	CurrentStock      decimal.Decimal `json:"current_stock" swaggertype:"string"`
	MinimumStock      decimal.Decimal `json:"minimum_stock" swaggertype:"string"`
	IdealStock        decimal.Decimal `json:"ideal_stock" swaggertype:"string"`         // MinimumStock * 1.5
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty" swaggertype:"string"` // IdealStock - CurrentStock
	UnitCost          decimal.Decimal `json:"unit_cost" swaggertype:"string"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost" swaggertype:"string"`
	Priority          int             `json:"priority"` // 1 = más urgente
}

// CreateIngredientRequest body para POST /api/ingredients.
type CreateIngredientRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Unit         string          `json:"unit" validate:"required,oneof=kg g l ml pcs packs boxes"`
	MinimumStock decimal.Decimal `json:"minimum_stock" swaggertype:"string" validate:"gte=0"`
	UnitCost     decimal.Decimal `json:"unit_cost" swaggertype:"string" validate:"gte=0"`
	OpeningStock decimal.Decimal `json:"opening_stock" swaggertype:"string" validate:"gte=0"`
	SupplierID   *string         `json:"supplier_id,omitempty"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
}

// IngredientResponse ingrediente con su saldo.
type IngredientResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock" swaggertype:"string"`
	MinimumStock decimal.Decimal `json:"minimum_stock" swaggertype:"string"`
	UnitCost     decimal.Decimal `json:"unit_cost" swaggertype:"string"`
	SupplierID   *string         `json:"supplier_id,omitempty"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	IsActive     bool            `json:"is_active"`
}

// ExpiringIngredientDTO ingrediente próximo a vencer.
type ExpiringIngredientDTO struct {
	IngredientID string          `json:"ingredient_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CurrentStock decimal.Decimal `json:"current_stock" swaggertype:"string"`
	ExpiryDate   time.Time       `json:"expiry_date"`
	DaysLeft     int             `json:"days_left"`
	StockValue   decimal.Decimal `json:"stock_value" swaggertype:"string"` // saldo al costo vigente
}
