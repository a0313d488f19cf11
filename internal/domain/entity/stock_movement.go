package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
)

// Tipos de movimiento del libro de stock.
const (
	MovementKindIn         = "in"         // entrada
	MovementKindOut        = "out"        // salida (consumo o descuento manual)
	MovementKindWaste      = "waste"      // merma
	MovementKindAdjustment = "adjustment" // ajuste de conteo, con signo según NewStock-PreviousStock
)

// StockMovement es un registro inmutable del libro: nunca se actualiza ni se borra.
// Las correcciones se expresan como nuevos movimientos de ajuste.
type StockMovement struct {
	ID            string
	Seq           int64 // orden de creación por ingrediente (1, 2, ...)
	IngredientID  string
	Kind          string
	Quantity      decimal.Decimal // siempre positivo
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	UnitCost      decimal.Decimal
	TotalValue    decimal.Decimal // Quantity * UnitCost
	Reference     string          // ORDER-<n>, PO #<n>, MANUAL-<ts>...
	Notes         string
	CreatedBy     string
	CreatedAt     time.Time
}

// IsValidMovementKind indica si kind pertenece al conjunto definido.
func IsValidMovementKind(kind string) bool {
	switch kind {
	case MovementKindIn, MovementKindOut, MovementKindWaste, MovementKindAdjustment:
		return true
	}
	return false
}

// Signed devuelve la variación del saldo que produce el movimiento.
// Para ajustes el signo se toma de los saldos capturados.
func (m *StockMovement) Signed() decimal.Decimal {
	switch m.Kind {
	case MovementKindIn:
		return m.Quantity
	case MovementKindOut, MovementKindWaste:
		return m.Quantity.Neg()
	case MovementKindAdjustment:
		if m.NewStock.LessThan(m.PreviousStock) {
			return m.Quantity.Neg()
		}
		return m.Quantity
	}
	return decimal.Zero
}

// Validate verifica tipo, cantidad y consistencia previous/new antes de escribir.
func (m *StockMovement) Validate() error {
	if m.IngredientID == "" || !IsValidMovementKind(m.Kind) {
		return domain.ErrInvalidMovement
	}
	if !m.Quantity.GreaterThan(decimal.Zero) {
		return domain.ErrInvalidMovement
	}
	if m.PreviousStock.IsNegative() || m.NewStock.IsNegative() {
		return domain.ErrInvalidMovement
	}
	if !m.PreviousStock.Add(m.Signed()).Equal(m.NewStock) {
		return domain.ErrInvalidMovement
	}
	return nil
}
