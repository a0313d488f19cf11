package dto

import "github.com/shopspring/decimal"

// CreateRecipeRequest body para POST /api/recipes. Los ingredientes van por nombre.
type CreateRecipeRequest struct {
	Name           string              `json:"name" validate:"required,max=200"`
	SellableItemID string              `json:"sellable_item_id" validate:"required"`
	Servings       int                 `json:"servings" validate:"min=0"`
	Ingredients    []RecipeLineRequest `json:"ingredients" validate:"required,min=1,dive"`
}

// RecipeLineRequest ingrediente y cantidad por porción.
type RecipeLineRequest struct {
	Name     string          `json:"name" validate:"required"`
	Quantity decimal.Decimal `json:"quantity" swaggertype:"string" validate:"gt=0"`
	Notes    string          `json:"notes"`
}

// RecipeResponse receta creada con los nombres no resueltos.
type RecipeResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SellableItemID string   `json:"sellable_item_id"`
	Servings       int      `json:"servings"`
	Lines          int      `json:"lines"`
	Unresolved     []string `json:"unresolved,omitempty"`
}

// AvailabilityRequest body para POST /api/recipes/:id/availability.
type AvailabilityRequest struct {
	Servings int `json:"servings" validate:"min=1"`
}
