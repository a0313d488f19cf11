package inventory_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/application/inventory/inventorytest"
	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

func TestStockRegister_Deduct_HarinaRecortaAlDisponible(t *testing.T) {
	f := newFixture(t)
	flour := f.store.SeedIngredient("flour", "Flour", "kg", "10", "2", "1.2")

	change, err := f.register.Deduct(context.Background(), inventory.DeductInput{
		IngredientID: flour.ID,
		Quantity:     dec("12"),
		Reference:    "ORDER-1",
	})
	require.NoError(t, err)
	assert.True(t, change.Applied.Equal(dec("10")))
	assert.True(t, change.Shortfall.Equal(dec("2")))
	assert.True(t, change.NewStock.IsZero())
	assert.True(t, f.store.Stock(flour.ID).IsZero())

	movs := f.store.MovementsOf(flour.ID)
	require.Len(t, movs, 2) // apertura + salida
	out := movs[1]
	assert.Equal(t, entity.MovementKindOut, out.Kind)
	assert.True(t, out.Quantity.Equal(dec("10")))
	assert.True(t, out.PreviousStock.Equal(dec("10")))
	assert.True(t, out.NewStock.IsZero())
	assert.Equal(t, "system", out.CreatedBy)
	assert.Equal(t, "ORDER-1", out.Reference)
	assert.True(t, out.TotalValue.Equal(dec("12")))
}

func TestStockRegister_Deduct_SinStockNoEscribeMovimiento(t *testing.T) {
	f := newFixture(t)
	ing := f.store.SeedIngredient("", "Yeast", "g", "0", "100", "0.1")

	change, err := f.register.Deduct(context.Background(), inventory.DeductInput{IngredientID: ing.ID, Quantity: dec("5")})
	require.NoError(t, err)
	assert.True(t, change.Applied.IsZero())
	assert.True(t, change.Shortfall.Equal(dec("5")))
	assert.Nil(t, change.Movement)
	assert.Zero(t, f.store.MovementCount())
}

func TestStockRegister_Deduct_IngredienteInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.register.Deduct(context.Background(), inventory.DeductInput{IngredientID: "nope", Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
}

func TestStockRegister_AddYDeduct_VuelveAlSaldoInicial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sugar := f.store.SeedIngredient("sugar", "Sugar", "kg", "4", "1", "2")

	_, err := f.register.Add(ctx, inventory.AddInput{IngredientID: sugar.ID, Quantity: dec("3.5"), UnitCost: dec("2.5")})
	require.NoError(t, err)
	_, err = f.register.Deduct(ctx, inventory.DeductInput{IngredientID: sugar.ID, Quantity: dec("3.5")})
	require.NoError(t, err)

	assert.True(t, f.store.Stock(sugar.ID).Equal(dec("4")))
	movs := f.store.MovementsOf(sugar.ID)[1:]
	require.Len(t, movs, 2)
	assert.Equal(t, int64(2), movs[0].Seq)
	assert.Equal(t, int64(3), movs[1].Seq)
	assert.True(t, movs[0].PreviousStock.Equal(dec("4")))
	assert.True(t, movs[0].NewStock.Equal(dec("7.5")))
	assert.True(t, movs[1].PreviousStock.Equal(movs[0].NewStock))
	assert.True(t, movs[1].NewStock.Equal(dec("4")))
	// costo vigente: el de la última entrada
	assert.True(t, f.store.Ingredient(sugar.ID).UnitCost.Equal(dec("2.5")))
	assert.True(t, movs[1].UnitCost.Equal(dec("2.5")))
}

func TestStockRegister_Add_Validaciones(t *testing.T) {
	f := newFixture(t)
	ing := f.store.SeedIngredient("", "Butter", "kg", "1", "1", "8")
	ctx := context.Background()

	_, err := f.register.Add(ctx, inventory.AddInput{IngredientID: ing.ID, Quantity: dec("0")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.register.Add(ctx, inventory.AddInput{IngredientID: ing.ID, Quantity: dec("-2")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// costo entrante 0 conserva el costo vigente
	_, err = f.register.Add(ctx, inventory.AddInput{IngredientID: ing.ID, Quantity: dec("2")})
	require.NoError(t, err)
	assert.True(t, f.store.Ingredient(ing.ID).UnitCost.Equal(dec("8")))
}

func TestStockRegister_ManualDeduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	milk := f.store.SeedIngredient("milk", "Milk", "l", "6", "2", "1")

	_, err := f.register.ManualDeduct(ctx, inventory.ManualDeductionInput{IngredientID: milk.ID, Amount: dec("0")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	change, err := f.register.ManualDeduct(ctx, inventory.ManualDeductionInput{
		IngredientID: milk.ID, Amount: dec("2"), Reason: "derrame", Actor: "user-7",
	})
	require.NoError(t, err)
	assert.True(t, change.NewStock.Equal(dec("4")))
	require.NotNil(t, change.Movement)
	assert.True(t, strings.HasPrefix(change.Movement.Reference, "MANUAL-"))
	assert.Contains(t, change.Movement.Notes, "derrame")
	assert.Equal(t, "user-7", change.Movement.CreatedBy)

	f.store.SetActive(milk.ID, false)
	_, err = f.register.ManualDeduct(ctx, inventory.ManualDeductionInput{IngredientID: milk.ID, Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInactiveIngredient)
	assert.True(t, f.store.Stock(milk.ID).Equal(dec("4")))
}

func TestStockRegister_RecordWaste(t *testing.T) {
	f := newFixture(t)
	eggs := f.store.SeedIngredient("eggs", "Eggs", "unit", "30", "12", "0.3")

	change, err := f.register.RecordWaste(context.Background(), inventory.ManualDeductionInput{IngredientID: eggs.ID, Amount: dec("6"), Reason: "rotos"})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementKindWaste, change.Movement.Kind)
	assert.True(t, strings.HasPrefix(change.Movement.Reference, "WASTE-"))
	assert.True(t, f.store.Stock(eggs.ID).Equal(dec("24")))
}

func TestStockRegister_SetStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cocoa := f.store.SeedIngredient("cocoa", "Cocoa", "kg", "5", "1", "10")

	change, err := f.register.SetStock(ctx, inventory.StocktakeInput{IngredientID: cocoa.ID, Counted: dec("3.25")})
	require.NoError(t, err)
	require.NotNil(t, change.Movement)
	assert.Equal(t, entity.MovementKindAdjustment, change.Movement.Kind)
	assert.True(t, change.Movement.Quantity.Equal(dec("1.75")))
	assert.True(t, change.Movement.Signed().Equal(dec("-1.75")))

	change, err = f.register.SetStock(ctx, inventory.StocktakeInput{IngredientID: cocoa.ID, Counted: dec("4")})
	require.NoError(t, err)
	assert.True(t, change.Movement.Signed().Equal(dec("0.75")))

	// sin diferencia no hay movimiento
	change, err = f.register.SetStock(ctx, inventory.StocktakeInput{IngredientID: cocoa.ID, Counted: dec("4")})
	require.NoError(t, err)
	assert.Nil(t, change.Movement)
	assert.Len(t, f.store.MovementsOf(cocoa.ID), 3)

	_, err = f.register.SetStock(ctx, inventory.StocktakeInput{IngredientID: cocoa.ID, Counted: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStockRegister_ReintentaAnteConflicto(t *testing.T) {
	f := newFixture(t)
	ing := f.store.SeedIngredient("", "Salt", "kg", "2", "1", "1")
	f.store.FailNext(inventorytest.OpUpdateStock, domain.ErrConcurrencyConflict)
	f.store.FailNext(inventorytest.OpUpdateStock, domain.ErrConcurrencyConflict)

	_, err := f.register.Deduct(context.Background(), inventory.DeductInput{IngredientID: ing.ID, Quantity: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, 2, f.metrics.retries)
	// los intentos fallidos no dejaron movimientos ni consumieron secuencia
	movs := f.store.MovementsOf(ing.ID)
	require.Len(t, movs, 2)
	assert.Equal(t, int64(2), movs[1].Seq)
	assert.True(t, f.store.Stock(ing.ID).Equal(dec("1")))
}

func TestStockRegister_ConflictoAgotaReintentos(t *testing.T) {
	f := newFixture(t)
	ing := f.store.SeedIngredient("", "Salt", "kg", "2", "1", "1")
	for i := 0; i < 4; i++ {
		f.store.FailNext(inventorytest.OpUpdateStock, domain.ErrConcurrencyConflict)
	}
	_, err := f.register.Deduct(context.Background(), inventory.DeductInput{IngredientID: ing.ID, Quantity: dec("1")})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Len(t, f.store.MovementsOf(ing.ID), 1)
	assert.True(t, f.store.Stock(ing.ID).Equal(dec("2")))
}

func TestStockRegister_DescuentosConcurrentes(t *testing.T) {
	f := newFixture(t)
	flour := f.store.SeedIngredient("flour", "Flour", "kg", "10", "2", "1")

	const workers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := dec("0")
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			change, err := f.register.Deduct(context.Background(), inventory.DeductInput{IngredientID: flour.ID, Quantity: dec("0.5")})
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			applied = applied.Add(change.Applied)
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, applied.Equal(dec("10")), "aplicado %s", applied)
	assert.True(t, f.store.Stock(flour.ID).IsZero())
	assert.Len(t, f.store.MovementsOf(flour.ID), 21)

	v, err := f.ledger.Verify(context.Background(), flour.ID)
	require.NoError(t, err)
	assert.True(t, v.Consistent, v.Error)
}

func TestStockRegister_RedondeaALaEscalaDelLibro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	butter := f.store.SeedIngredient("butter", "Butter", "kg", "2", "0", "8")

	added, err := f.register.Add(ctx, inventory.AddInput{IngredientID: butter.ID, Quantity: dec("0.33333"), UnitCost: dec("8.123456")})
	require.NoError(t, err)
	assert.True(t, added.Movement.Quantity.Equal(dec("0.333")))
	assert.True(t, added.Movement.NewStock.Equal(dec("2.333")))
	assert.True(t, added.Movement.UnitCost.Equal(dec("8.1235")))
	assert.True(t, added.Movement.TotalValue.Equal(dec("2.7051")), "total=%s", added.Movement.TotalValue)

	counted, err := f.register.SetStock(ctx, inventory.StocktakeInput{IngredientID: butter.ID, Counted: dec("2.0004")})
	require.NoError(t, err)
	assert.True(t, counted.NewStock.Equal(dec("2")))
	assert.True(t, counted.Movement.Signed().Equal(dec("-0.333")))

	// por debajo de la escala no queda nada que descontar
	tiny, err := f.register.Deduct(ctx, inventory.DeductInput{IngredientID: butter.ID, Quantity: dec("0.0004")})
	require.NoError(t, err)
	assert.Nil(t, tiny.Movement)
	assert.True(t, f.store.Stock(butter.ID).Equal(dec("2")))

	_, err = f.register.Add(ctx, inventory.AddInput{IngredientID: butter.ID, Quantity: dec("0.0001")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	v, err := f.ledger.Verify(ctx, butter.ID)
	require.NoError(t, err)
	assert.True(t, v.Consistent, v.Error)
}

func TestStockRegister_CreateIngredientRegistraSaldoInicial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ing, err := f.register.CreateIngredient(ctx, inventory.CreateIngredientInput{
		Name:         " Vanilla ",
		Unit:         "ml",
		MinimumStock: dec("100"),
		UnitCost:     dec("0.25"),
		OpeningStock: dec("750.0004"),
		Actor:        "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Vanilla", ing.Name)
	assert.True(t, ing.CurrentStock.Equal(dec("750")))
	assert.True(t, f.store.Stock(ing.ID).Equal(dec("750")))

	movs := f.store.MovementsOf(ing.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementKindIn, movs[0].Kind)
	assert.Equal(t, inventory.OpeningReference, movs[0].Reference)
	assert.True(t, movs[0].PreviousStock.IsZero())
	assert.Equal(t, "user-1", movs[0].CreatedBy)

	v, err := f.ledger.Verify(ctx, ing.ID)
	require.NoError(t, err)
	assert.True(t, v.Consistent, v.Error)

	// sin saldo inicial no hay movimiento
	empty, err := f.register.CreateIngredient(ctx, inventory.CreateIngredientInput{Name: "Cinnamon", Unit: "g"})
	require.NoError(t, err)
	assert.True(t, empty.CurrentStock.IsZero())
	assert.Empty(t, f.store.MovementsOf(empty.ID))

	_, err = f.register.CreateIngredient(ctx, inventory.CreateIngredientInput{Name: "vanilla", Unit: "ml"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	_, err = f.register.CreateIngredient(ctx, inventory.CreateIngredientInput{Name: "Salt", Unit: "kg", OpeningStock: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
