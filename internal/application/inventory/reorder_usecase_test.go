package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain"
)

func TestReorder_LowStockOrdenaPorDeficit(t *testing.T) {
	f := newFixture(t)
	f.store.SeedIngredient("flour", "Flour", "kg", "1", "10", "2")
	f.store.SeedIngredient("sugar", "Sugar", "kg", "4", "5", "1")
	f.store.SeedIngredient("salt", "Salt", "kg", "9", "1", "1")
	f.store.SeedIngredient("yeast", "Yeast", "g", "0", "2", "0.5")
	f.store.SetActive("yeast", false)

	list, err := f.reorder.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "flour", list[0].IngredientID)
	assert.Equal(t, 1, list[0].Priority)
	assert.True(t, list[0].SuggestedOrderQty.Equal(dec("14")))
	assert.True(t, list[0].EstimatedCost.Equal(dec("28")))

	assert.Equal(t, "sugar", list[1].IngredientID)
	assert.True(t, list[1].IdealStock.Equal(dec("7.5")))
	assert.True(t, list[1].SuggestedOrderQty.Equal(dec("3.5")))
}

func TestReorder_ExpiringSoon(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	f.reorder.WithClock(func() time.Time { return now })

	f.store.SeedIngredient("milk", "Milk", "l", "4", "1", "1.2")
	f.store.SeedIngredient("cream", "Cream", "l", "2", "1", "3")
	f.store.SeedIngredient("butter", "Butter", "kg", "1", "1", "8")
	f.store.SeedIngredient("yeast", "Yeast", "g", "500", "100", "0.01")
	f.store.SeedIngredient("flour", "Flour", "kg", "10", "2", "1")
	f.store.SetExpiry("milk", time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC))
	f.store.SetExpiry("cream", time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))   // vence hoy, antes de la hora actual
	f.store.SetExpiry("butter", time.Date(2024, 7, 10, 23, 0, 0, 0, time.UTC)) // día 30
	f.store.SetExpiry("yeast", time.Date(2024, 7, 11, 0, 0, 0, 0, time.UTC))   // día 31
	f.store.SetExpiry("flour", time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))   // ya vencido

	list, err := f.reorder.ExpiringSoon(context.Background(), inventory.DefaultExpiryWindowDays)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "cream", list[0].IngredientID)
	assert.Equal(t, 0, list[0].DaysLeft)
	assert.Equal(t, "milk", list[1].IngredientID)
	assert.Equal(t, 2, list[1].DaysLeft)
	assert.True(t, list[1].StockValue.Equal(dec("4.8")))
	assert.Equal(t, "butter", list[2].IngredientID)
	assert.Equal(t, 30, list[2].DaysLeft)

	f.store.SetActive("milk", false)
	list, err = f.reorder.ExpiringSoon(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "cream", list[0].IngredientID)

	_, err = f.reorder.ExpiringSoon(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
