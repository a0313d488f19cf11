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

var _ repository.IngredientRepository = (*IngredientRepo)(nil)

// IngredientRepo implementación de IngredientRepository sobre PostgreSQL (usable con pool o tx).
type IngredientRepo struct {
	q Querier
}

// NewIngredientRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIngredientRepository(q Querier) *IngredientRepo {
	return &IngredientRepo{q: q}
}

const ingredientColumns = `id, name, unit, current_stock, minimum_stock, unit_cost, supplier_id, expiry_date, is_active, created_at, updated_at`

func scanIngredient(row pgx.Row) (*entity.Ingredient, error) {
	var i entity.Ingredient
	err := row.Scan(
		&i.ID, &i.Name, &i.Unit, &i.CurrentStock, &i.MinimumStock, &i.UnitCost,
		&i.SupplierID, &i.ExpiryDate, &i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserta el ingrediente con current_stock = 0. Un saldo inicial se registra después
// como movimiento de entrada para que el libro lo reproduzca.
func (r *IngredientRepo) Create(ctx context.Context, i *entity.Ingredient) error {
	query := `
		INSERT INTO ingredients (` + ingredientColumns + `)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7, $8, $9, $10)`
	i.CurrentStock = decimal.Zero
	_, err := r.q.Exec(ctx, query,
		i.ID, i.Name, i.Unit, i.MinimumStock, i.UnitCost,
		i.SupplierID, i.ExpiryDate, i.IsActive, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert ingredient: %w", err)
	}
	return nil
}

// GetByID obtiene un ingrediente por ID. Devuelve nil, nil si no existe.
func (r *IngredientRepo) GetByID(ctx context.Context, id string) (*entity.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1`
	i, err := scanIngredient(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return i, nil
}

// GetForUpdate obtiene el ingrediente y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
func (r *IngredientRepo) GetForUpdate(ctx context.Context, id string) (*entity.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = $1 FOR UPDATE`
	i, err := scanIngredient(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ingredient for update: %w", err)
	}
	return i, nil
}

// FindByName busca por nombre sin distinguir mayúsculas, ordenado por ID.
func (r *IngredientRepo) FindByName(ctx context.Context, name string) ([]*entity.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE lower(name) = lower(trim($1)) ORDER BY id`
	return r.list(ctx, query, name)
}

// ListLowStock ingredientes con saldo <= mínimo.
func (r *IngredientRepo) ListLowStock(ctx context.Context) ([]*entity.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE current_stock <= minimum_stock ORDER BY name`
	return r.list(ctx, query)
}

// ListExpiring ingredientes que vencen en [from, until).
func (r *IngredientRepo) ListExpiring(ctx context.Context, from, until time.Time) ([]*entity.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients
		WHERE expiry_date IS NOT NULL AND expiry_date >= $1 AND expiry_date < $2
		ORDER BY expiry_date, name`
	return r.list(ctx, query, from, until)
}

func (r *IngredientRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Ingredient, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()
	var out []*entity.Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// UpdateStock escribe saldo y costo solo si el saldo sigue siendo expected.
func (r *IngredientRepo) UpdateStock(ctx context.Context, id string, expected, newStock, unitCost decimal.Decimal) error {
	query := `
		UPDATE ingredients
		SET current_stock = $3, unit_cost = $4, updated_at = now()
		WHERE id = $1 AND current_stock = $2`
	tag, err := r.q.Exec(ctx, query, id, expected, newStock, unitCost)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidMovement
		}
		return fmt.Errorf("update ingredient stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}
