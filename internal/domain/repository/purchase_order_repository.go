package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// PurchaseOrderRepository puerto de órdenes de compra.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByNumber(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error)
	// GetByNumberForUpdate bloquea la cabecera para serializar recepciones de la misma orden.
	GetByNumberForUpdate(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, id, status string, deliveryDate *time.Time) error
	UpdateReceivedQuantity(ctx context.Context, itemID string, received decimal.Decimal) error
	ListByStatus(ctx context.Context, statuses ...string) ([]*entity.PurchaseOrder, error)
	// CountCreatedOn cuenta las órdenes creadas en la fecha para numerar PO<yyyymmdd><nnnn>.
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
}
