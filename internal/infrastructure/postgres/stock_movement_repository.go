package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos sobre PostgreSQL. Solo INSERT y SELECT.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create inserta el movimiento con el siguiente seq del ingrediente.
// El caller tiene la fila del ingrediente bloqueada, así que MAX(seq)+1 no compite;
// el índice único (ingredient_id, seq) queda como respaldo y se traduce a conflicto.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (
			id, seq, ingredient_id, kind, quantity, previous_stock, new_stock,
			unit_cost, total_value, reference, notes, created_by, created_at
		)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM stock_movements WHERE ingredient_id = $2),
			$2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING seq`
	err := r.q.QueryRow(ctx, query,
		m.ID, m.IngredientID, m.Kind, m.Quantity, m.PreviousStock, m.NewStock,
		m.UnitCost, m.TotalValue, m.Reference, m.Notes, m.CreatedBy, m.CreatedAt,
	).Scan(&m.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConcurrencyConflict
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidMovement
		}
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// List página de movimientos en orden de seq (cursor AfterSeq).
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.IngredientID != "" {
		add("ingredient_id = $%d", f.IngredientID)
	}
	add("seq > $%d", f.AfterSeq)
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, seq, ingredient_id, kind, quantity, previous_stock, new_stock,
		       unit_cost, total_value, reference, notes, created_by, created_at
		FROM stock_movements
		WHERE %s
		ORDER BY ingredient_id, seq
		LIMIT $%d`, strings.Join(where, " AND "), len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(
			&m.ID, &m.Seq, &m.IngredientID, &m.Kind, &m.Quantity, &m.PreviousStock, &m.NewStock,
			&m.UnitCost, &m.TotalValue, &m.Reference, &m.Notes, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CountByReference cuenta los movimientos con la referencia dada (p. ej. "ORDER-1001").
func (r *StockMovementRepo) CountByReference(ctx context.Context, reference string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE reference = $1`, reference).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stock movements: %w", err)
	}
	return n, nil
}
