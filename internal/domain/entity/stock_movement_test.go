package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

func mov(kind, qty, prev, next string) *entity.StockMovement {
	return &entity.StockMovement{
		IngredientID:  "ing-1",
		Kind:          kind,
		Quantity:      decimal.RequireFromString(qty),
		PreviousStock: decimal.RequireFromString(prev),
		NewStock:      decimal.RequireFromString(next),
	}
}

func TestStockMovement_Validate(t *testing.T) {
	valid := []*entity.StockMovement{
		mov(entity.MovementKindIn, "5", "0", "5"),
		mov(entity.MovementKindOut, "2", "5", "3"),
		mov(entity.MovementKindWaste, "3", "3", "0"),
		mov(entity.MovementKindAdjustment, "1.5", "3", "4.5"),
		mov(entity.MovementKindAdjustment, "1.5", "3", "1.5"),
	}
	for _, m := range valid {
		assert.NoError(t, m.Validate(), "%s %s", m.Kind, m.Quantity)
	}

	invalid := map[string]*entity.StockMovement{
		"tipo desconocido":    mov("transfer", "1", "1", "2"),
		"cantidad cero":       mov(entity.MovementKindIn, "0", "1", "1"),
		"cantidad negativa":   mov(entity.MovementKindOut, "-1", "1", "2"),
		"saldo inconsistente": mov(entity.MovementKindOut, "1", "5", "5"),
		"saldo negativo":      mov(entity.MovementKindOut, "2", "1", "-1"),
		"ajuste sin cambio":   mov(entity.MovementKindAdjustment, "1", "2", "2"),
	}
	for name, m := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, m.Validate(), domain.ErrInvalidMovement)
		})
	}
}

func TestPurchaseOrder_Transitions(t *testing.T) {
	po := &entity.PurchaseOrder{Status: entity.POStatusDraft}
	assert.True(t, po.CanTransitionTo(entity.POStatusSent))
	assert.False(t, po.CanTransitionTo(entity.POStatusReceived))
	assert.False(t, po.CanReceive())

	po.Status = entity.POStatusConfirmed
	assert.True(t, po.CanReceive())

	po.Status = entity.POStatusReceived
	assert.False(t, po.CanTransitionTo(entity.POStatusCancelled))
}

func TestPurchaseOrder_IsFullyReceived(t *testing.T) {
	po := &entity.PurchaseOrder{Items: []entity.PurchaseOrderItem{
		{ID: "a", OrderedQuantity: decimal.NewFromInt(50), ReceivedQuantity: decimal.NewFromInt(50)},
		{ID: "b", OrderedQuantity: decimal.NewFromInt(20), ReceivedQuantity: decimal.NewFromInt(10)},
	}}
	assert.False(t, po.IsFullyReceived())
	assert.True(t, po.HasReceipts())

	po.Item("b").ReceivedQuantity = decimal.NewFromInt(20)
	assert.True(t, po.IsFullyReceived())
}
