package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// AvailabilityChecker responde si hay insumos para N porciones de una receta.
// Es lectura pura sin bloqueo: una foto que puede quedar vieja antes del siguiente descuento.
type AvailabilityChecker struct {
	recipeRepo repository.RecipeRepository
	resolver   *RecipeResolver
}

// NewAvailabilityChecker construye el verificador.
func NewAvailabilityChecker(recipeRepo repository.RecipeRepository, resolver *RecipeResolver) *AvailabilityChecker {
	return &AvailabilityChecker{recipeRepo: recipeRepo, resolver: resolver}
}

// Shortage faltante de un ingrediente para la cantidad pedida.
type Shortage struct {
	IngredientID string          `json:"ingredient_id"`
	Ingredient   string          `json:"ingredient"`
	Unit         string          `json:"unit"`
	Required     decimal.Decimal `json:"required" swaggertype:"string"`
	Available    decimal.Decimal `json:"available" swaggertype:"string"`
	Shortfall    decimal.Decimal `json:"shortfall" swaggertype:"string"`
}

// AvailabilityResult respuesta del chequeo.
type AvailabilityResult struct {
	RecipeID  string     `json:"recipe_id"`
	Recipe    string     `json:"recipe"`
	Servings  int        `json:"servings"`
	Available bool       `json:"available"`
	Shortages []Shortage `json:"shortages"`
}

// Check explota la receta escalada por servings y compara contra el saldo actual.
func (a *AvailabilityChecker) Check(ctx context.Context, recipeID string, servings int) (*AvailabilityResult, error) {
	if recipeID == "" || servings <= 0 {
		return nil, domain.ErrValidation
	}
	recipe, err := a.recipeRepo.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrRecipeNotFound
	}
	reqs, _, err := a.resolver.ExplodeRecipe(ctx, recipe, decimal.NewFromInt(int64(servings)))
	if err != nil {
		return nil, err
	}

	// Un ingrediente repetido en la receta se compara por su total.
	totals := make(map[string]*Requirement, len(reqs))
	order := make([]string, 0, len(reqs))
	for i := range reqs {
		r := reqs[i]
		if t, ok := totals[r.IngredientID]; ok {
			t.Quantity = t.Quantity.Add(r.Quantity)
			continue
		}
		totals[r.IngredientID] = &r
		order = append(order, r.IngredientID)
	}

	res := &AvailabilityResult{
		RecipeID:  recipe.ID,
		Recipe:    recipe.Name,
		Servings:  servings,
		Shortages: []Shortage{},
	}
	for _, id := range order {
		r := totals[id]
		if r.Available.GreaterThanOrEqual(r.Quantity) {
			continue
		}
		res.Shortages = append(res.Shortages, Shortage{
			IngredientID: r.IngredientID,
			Ingredient:   r.IngredientName,
			Unit:         r.Unit,
			Required:     r.Quantity,
			Available:    r.Available,
			Shortfall:    r.Quantity.Sub(r.Available),
		})
	}
	res.Available = len(res.Shortages) == 0
	return res, nil
}
