package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza que saldo, movimiento y marcas de idempotencia se confirmen juntos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		ingredientRepo repository.IngredientRepository,
	) error) error

	RunConsumption(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		ingredientRepo repository.IngredientRepository,
		consumptionRepo repository.ConsumptionRepository,
	) error) error

	RunProcurement(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		ingredientRepo repository.IngredientRepository,
		poRepo repository.PurchaseOrderRepository,
	) error) error
}

// OrderLocker serializa el procesamiento de un mismo pedido entre instancias.
// Es opcional: la marca persistida es la que garantiza la idempotencia.
type OrderLocker interface {
	Lock(ctx context.Context, orderNumber string) (release func(), err error)
}

// Metrics recibe los eventos operativos del motor de consumo y de las recepciones.
type Metrics interface {
	OrderProcessed(movements int)
	DuplicateTrigger()
	Shortage(ingredientID string, shortfall decimal.Decimal)
	ReceiptApplied(lines int)
	ConcurrencyRetry()
}

type nopMetrics struct{}

func (nopMetrics) OrderProcessed(int)               {}
func (nopMetrics) DuplicateTrigger()                {}
func (nopMetrics) Shortage(string, decimal.Decimal) {}
func (nopMetrics) ReceiptApplied(int)               {}
func (nopMetrics) ConcurrencyRetry()                {}
