package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra y sus líneas sobre PostgreSQL.
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

const poColumns = `id, po_number, supplier_id, status, order_date, expected_delivery, delivery_date, notes, created_by, created_at, updated_at`

// Create inserta cabecera y líneas en un batch (transacción implícita).
func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	b := &pgx.Batch{}
	b.Queue(`INSERT INTO purchase_orders (`+poColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		po.ID, po.PONumber, po.SupplierID, po.Status, po.OrderDate, po.ExpectedDelivery, po.DeliveryDate,
		po.Notes, po.CreatedBy, po.CreatedAt, po.UpdatedAt)
	for _, it := range po.Items {
		b.Queue(`
			INSERT INTO purchase_order_items (id, purchase_order_id, ingredient_id, ordered_quantity, received_quantity, unit_cost)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, po.ID, it.IngredientID, it.OrderedQuantity, it.ReceivedQuantity, it.UnitCost)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert purchase order: %w", err)
		}
	}
	return br.Close()
}

// GetByNumber orden con líneas o nil.
func (r *PurchaseOrderRepo) GetByNumber(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE po_number = $1`, poNumber)
}

// GetByNumberForUpdate bloquea la cabecera hasta el fin de la tx.
func (r *PurchaseOrderRepo) GetByNumberForUpdate(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	return r.get(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE po_number = $1 FOR UPDATE`, poNumber)
}

func scanPO(row pgx.Row) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := row.Scan(
		&po.ID, &po.PONumber, &po.SupplierID, &po.Status, &po.OrderDate, &po.ExpectedDelivery,
		&po.DeliveryDate, &po.Notes, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepo) get(ctx context.Context, query, arg string) (*entity.PurchaseOrder, error) {
	po, err := scanPO(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if err := r.loadItems(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

func (r *PurchaseOrderRepo) loadItems(ctx context.Context, po *entity.PurchaseOrder) error {
	rows, err := r.q.Query(ctx, `
		SELECT id, purchase_order_id, ingredient_id, ordered_quantity, received_quantity, unit_cost
		FROM purchase_order_items WHERE purchase_order_id = $1 ORDER BY id`, po.ID)
	if err != nil {
		return fmt.Errorf("list purchase order items: %w", err)
	}
	defer rows.Close()
	po.Items = po.Items[:0]
	for rows.Next() {
		var it entity.PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.PurchaseOrderID, &it.IngredientID, &it.OrderedQuantity, &it.ReceivedQuantity, &it.UnitCost); err != nil {
			return fmt.Errorf("scan purchase order item: %w", err)
		}
		po.Items = append(po.Items, it)
	}
	return rows.Err()
}

// UpdateStatus cambia el estado; deliveryDate nil conserva la fecha de entrega.
func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, id, status string, deliveryDate *time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE purchase_orders
		SET status = $2, delivery_date = COALESCE($3, delivery_date), updated_at = now()
		WHERE id = $1`, id, status, deliveryDate)
	if err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateReceivedQuantity fija la cantidad recibida acumulada de la línea.
func (r *PurchaseOrderRepo) UpdateReceivedQuantity(ctx context.Context, itemID string, received decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE purchase_order_items SET received_quantity = $2 WHERE id = $1`, itemID, received)
	if err != nil {
		return fmt.Errorf("update received quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus órdenes en cualquiera de los estados, por fecha de pedido.
func (r *PurchaseOrderRepo) ListByStatus(ctx context.Context, statuses ...string) ([]*entity.PurchaseOrder, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+poColumns+` FROM purchase_orders
		WHERE status = ANY($1) ORDER BY order_date, po_number`, statuses)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	var out []*entity.PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		out = append(out, po)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Las líneas se cargan después de cerrar rows: la conexión no admite dos consultas abiertas.
	for _, po := range out {
		if err := r.loadItems(ctx, po); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountCreatedOn órdenes creadas en el día calendario de day.
func (r *PurchaseOrderRepo) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders WHERE created_at::date = $1::date`, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count purchase orders: %w", err)
	}
	return n, nil
}
