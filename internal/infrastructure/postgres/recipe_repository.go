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

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo recetas y sus líneas sobre PostgreSQL.
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

// Create inserta cabecera y líneas en un batch (transacción implícita).
func (r *RecipeRepo) Create(ctx context.Context, recipe *entity.Recipe) error {
	b := &pgx.Batch{}
	b.Queue(`
		INSERT INTO recipes (id, name, sellable_item_id, servings, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		recipe.ID, recipe.Name, recipe.SellableItemID, recipe.Servings, recipe.IsActive, recipe.CreatedAt, recipe.UpdatedAt)
	for _, l := range recipe.Lines {
		b.Queue(`
			INSERT INTO recipe_lines (id, recipe_id, ingredient_id, quantity, notes)
			VALUES ($1, $2, $3, $4, $5)`,
			l.ID, recipe.ID, l.IngredientID, l.Quantity, l.Notes)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert recipe: %w", err)
		}
	}
	return br.Close()
}

// GetByID receta con líneas o nil.
func (r *RecipeRepo) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetBySellableItem receta activa del producto vendible o nil.
func (r *RecipeRepo) GetBySellableItem(ctx context.Context, sellableItemID string) (*entity.Recipe, error) {
	return r.get(ctx, `WHERE sellable_item_id = $1 AND is_active`, sellableItemID)
}

func (r *RecipeRepo) get(ctx context.Context, where string, arg string) (*entity.Recipe, error) {
	query := `
		SELECT id, name, sellable_item_id, servings, is_active, created_at, updated_at
		FROM recipes ` + where
	var rec entity.Recipe
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&rec.ID, &rec.Name, &rec.SellableItemID, &rec.Servings, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, ingredient_id, quantity, notes
		FROM recipe_lines WHERE recipe_id = $1 ORDER BY ingredient_id`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("list recipe lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.RecipeLine
		if err := rows.Scan(&l.ID, &l.IngredientID, &l.Quantity, &l.Notes); err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		rec.Lines = append(rec.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}
