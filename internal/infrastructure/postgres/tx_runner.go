package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL (READ COMMITTED).
// Las filas de ingredientes se bloquean con SELECT FOR UPDATE dentro del callback.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// inTx abre la transacción, ejecuta fn y hace Commit; ante error o panic hace Rollback.
func (r *TxRunner) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Run ejecuta fn con el libro y los ingredientes atados a la tx.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStockMovementRepository(tx), NewIngredientRepository(tx))
	})
}

// RunConsumption agrega la marca de idempotencia de pedidos a la misma tx.
func (r *TxRunner) RunConsumption(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	consumptionRepo repository.ConsumptionRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStockMovementRepository(tx), NewIngredientRepository(tx), NewConsumptionRepository(tx))
	})
}

// RunProcurement agrega las órdenes de compra a la misma tx.
func (r *TxRunner) RunProcurement(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	poRepo repository.PurchaseOrderRepository,
) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(NewStockMovementRepository(tx), NewIngredientRepository(tx), NewPurchaseOrderRepository(tx))
	})
}
