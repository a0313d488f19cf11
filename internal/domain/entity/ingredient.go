package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ingredient representa un insumo de panadería con su saldo materializado.
// CurrentStock solo se modifica a través del registro de stock y siempre coincide
// con la suma de los movimientos del libro.
type Ingredient struct {
	ID           string
	Name         string // único sin distinguir mayúsculas
	Unit         string // kg, g, l, ml, pcs, packs, boxes
	CurrentStock decimal.Decimal
	MinimumStock decimal.Decimal // umbral de reorden
	UnitCost     decimal.Decimal // costo vigente (último costo de entrada)
	SupplierID   *string
	ExpiryDate   *time.Time
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsLowStock indica si el saldo está en o por debajo del mínimo.
func (i *Ingredient) IsLowStock() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinimumStock)
}

// TotalValue valoriza el saldo actual al costo vigente.
func (i *Ingredient) TotalValue() decimal.Decimal {
	return i.CurrentStock.Mul(i.UnitCost)
}
