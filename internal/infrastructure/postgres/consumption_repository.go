package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

var _ repository.ConsumptionRepository = (*ConsumptionRepo)(nil)

// ConsumptionRepo marca de idempotencia por pedido (tabla order_consumptions).
type ConsumptionRepo struct {
	q Querier
}

// NewConsumptionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewConsumptionRepository(q Querier) *ConsumptionRepo {
	return &ConsumptionRepo{q: q}
}

// TryMark inserta la marca. Un insert concurrente del mismo pedido espera el commit del
// primero y termina sin filas afectadas.
func (r *ConsumptionRepo) TryMark(ctx context.Context, orderNumber, triggerStatus string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO order_consumptions (order_number, trigger_status, movement_count, warnings, processed_at)
		VALUES ($1, $2, 0, '[]'::jsonb, now())
		ON CONFLICT (order_number) DO NOTHING`, orderNumber, triggerStatus)
	if err != nil {
		return false, fmt.Errorf("mark order consumption: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SaveOutcome guarda advertencias y cantidad de movimientos sobre la marca.
func (r *ConsumptionRepo) SaveOutcome(ctx context.Context, rec *entity.ConsumptionRecord) error {
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []entity.ConsumptionWarning{}
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE order_consumptions
		SET trigger_status = $2, movement_count = $3, warnings = $4, processed_at = $5
		WHERE order_number = $1`,
		rec.OrderNumber, rec.TriggerStatus, rec.MovementCount, warnings, rec.ProcessedAt)
	if err != nil {
		return fmt.Errorf("save consumption outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get registro del pedido o nil.
func (r *ConsumptionRepo) Get(ctx context.Context, orderNumber string) (*entity.ConsumptionRecord, error) {
	var rec entity.ConsumptionRecord
	err := r.q.QueryRow(ctx, `
		SELECT order_number, trigger_status, movement_count, warnings, processed_at
		FROM order_consumptions WHERE order_number = $1`, orderNumber).Scan(
		&rec.OrderNumber, &rec.TriggerStatus, &rec.MovementCount, &rec.Warnings, &rec.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get consumption record: %w", err)
	}
	return &rec, nil
}
