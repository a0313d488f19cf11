package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	inv "github.com/jhoicas/bakery-stock/internal/domain/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// Requirement cantidad concreta de un ingrediente que exige una explosión de receta.
// Available es el saldo leído sin bloqueo al momento de explotar.
type Requirement struct {
	SellableItemID string
	IngredientID   string
	IngredientName string
	Unit           string
	Quantity       decimal.Decimal
	Available      decimal.Decimal
}

// RecipeResolver convierte un producto vendible y una cantidad en insumos requeridos.
type RecipeResolver struct {
	recipeRepo     repository.RecipeRepository
	ingredientRepo repository.IngredientRepository
	log            zerolog.Logger
}

// NewRecipeResolver construye el resolvedor de recetas.
func NewRecipeResolver(recipeRepo repository.RecipeRepository, ingredientRepo repository.IngredientRepository, log zerolog.Logger) *RecipeResolver {
	return &RecipeResolver{
		recipeRepo:     recipeRepo,
		ingredientRepo: ingredientRepo,
		log:            log.With().Str("component", "recipe_resolver").Logger(),
	}
}

// Explode devuelve los insumos del producto escalados por quantity.
// Sin receta devuelve lista vacía y una advertencia: no bloquea el pedido.
func (r *RecipeResolver) Explode(ctx context.Context, sellableItemID string, quantity decimal.Decimal) ([]Requirement, []entity.ConsumptionWarning, error) {
	recipe, err := r.recipeRepo.GetBySellableItem(ctx, sellableItemID)
	if err != nil {
		return nil, nil, err
	}
	if recipe == nil {
		r.log.Warn().Str("sellable_item_id", sellableItemID).Msg("producto sin receta definida")
		return nil, []entity.ConsumptionWarning{{
			Code:           entity.WarningRecipeNotFound,
			SellableItemID: sellableItemID,
			Message:        domain.ErrRecipeNotFound.Error(),
		}}, nil
	}
	reqs, warnings, err := r.ExplodeRecipe(ctx, recipe, quantity)
	for i := range reqs {
		reqs[i].SellableItemID = sellableItemID
	}
	for i := range warnings {
		warnings[i].SellableItemID = sellableItemID
	}
	return reqs, warnings, err
}

// ExplodeRecipe explota una receta ya cargada: requerido = cantidad por porción * quantity,
// redondeado a la escala del libro.
// Las líneas cuyo ingrediente ya no existe se omiten con advertencia.
func (r *RecipeResolver) ExplodeRecipe(ctx context.Context, recipe *entity.Recipe, quantity decimal.Decimal) ([]Requirement, []entity.ConsumptionWarning, error) {
	reqs := make([]Requirement, 0, len(recipe.Lines))
	var warnings []entity.ConsumptionWarning
	for _, line := range recipe.Lines {
		if !line.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		ing, err := r.ingredientRepo.GetByID(ctx, line.IngredientID)
		if err != nil {
			return nil, nil, err
		}
		if ing == nil {
			r.log.Warn().
				Str("recipe", recipe.Name).
				Str("ingredient_id", line.IngredientID).
				Msg("ingrediente de la receta no encontrado, se omite la línea")
			warnings = append(warnings, entity.ConsumptionWarning{
				Code:         entity.WarningIngredientNotFound,
				IngredientID: line.IngredientID,
				Requested:    inv.Quantize(line.Quantity.Mul(quantity)),
				Message:      fmt.Sprintf("receta %q: %s", recipe.Name, domain.ErrIngredientNotFound),
			})
			continue
		}
		required := inv.Quantize(line.Quantity.Mul(quantity))
		if required.IsZero() {
			r.log.Debug().
				Str("recipe", recipe.Name).
				Str("ingredient_id", ing.ID).
				Str("quantity", line.Quantity.Mul(quantity).String()).
				Msg("cantidad requerida bajo la escala del libro, se omite")
			continue
		}
		reqs = append(reqs, Requirement{
			IngredientID:   ing.ID,
			IngredientName: ing.Name,
			Unit:           ing.Unit,
			Quantity:       required,
			Available:      ing.CurrentStock,
		})
	}
	return reqs, warnings, nil
}

// ResolveIngredientName busca un ingrediente por nombre sin distinguir mayúsculas.
// Si hay varios con el mismo nombre usa el de menor ID y lo registra.
func (r *RecipeResolver) ResolveIngredientName(ctx context.Context, name string) (*entity.Ingredient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrValidation
	}
	found, err := r.ingredientRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, domain.ErrIngredientNotFound
	case 1:
		return found[0], nil
	}
	first := found[0]
	for _, ing := range found[1:] {
		if ing.ID < first.ID {
			first = ing
		}
	}
	r.log.Warn().
		Str("name", name).
		Int("matches", len(found)).
		Str("ingredient_id", first.ID).
		Msg("nombre de ingrediente ambiguo, se usa el primero")
	return first, nil
}

// SaveRecipeInput definición de receta con ingredientes por nombre.
type SaveRecipeInput struct {
	Name           string
	SellableItemID string
	Servings       int
	Lines          []RecipeLineInput
}

// RecipeLineInput línea por nombre de ingrediente.
type RecipeLineInput struct {
	IngredientName string
	Quantity       decimal.Decimal
	Notes          string
}

// SaveRecipeResult receta creada y nombres que no se pudieron resolver.
type SaveRecipeResult struct {
	Recipe     *entity.Recipe
	Unresolved []string
}

// SaveRecipe resuelve los nombres una sola vez, al crear la receta, y guarda IDs tipados.
func (r *RecipeResolver) SaveRecipe(ctx context.Context, in SaveRecipeInput) (*SaveRecipeResult, error) {
	if strings.TrimSpace(in.Name) == "" || in.SellableItemID == "" || len(in.Lines) == 0 {
		return nil, domain.ErrValidation
	}
	servings := in.Servings
	if servings <= 0 {
		servings = 1
	}
	now := time.Now()
	recipe := &entity.Recipe{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(in.Name),
		SellableItemID: in.SellableItemID,
		Servings:       servings,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	result := &SaveRecipeResult{Recipe: recipe}
	for _, l := range in.Lines {
		qty := inv.Quantize(l.Quantity)
		if !qty.GreaterThan(decimal.Zero) {
			return nil, domain.ErrValidation
		}
		ing, err := r.ResolveIngredientName(ctx, l.IngredientName)
		if err != nil {
			if err == domain.ErrIngredientNotFound || err == domain.ErrValidation {
				r.log.Warn().Str("recipe", recipe.Name).Str("name", l.IngredientName).Msg("ingrediente no encontrado al crear la receta")
				result.Unresolved = append(result.Unresolved, l.IngredientName)
				continue
			}
			return nil, err
		}
		recipe.Lines = append(recipe.Lines, entity.RecipeLine{
			ID:           uuid.New().String(),
			IngredientID: ing.ID,
			Quantity:     qty,
			Notes:        l.Notes,
		})
	}
	if len(recipe.Lines) == 0 {
		return nil, domain.ErrValidation
	}
	if err := r.recipeRepo.Create(ctx, recipe); err != nil {
		return nil, err
	}
	return result, nil
}
