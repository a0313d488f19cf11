package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bakery-stock/internal/application/dto"
	"github.com/jhoicas/bakery-stock/internal/application/inventory"
)

// RecipeHandler alta de recetas y consulta de disponibilidad de insumos.
type RecipeHandler struct {
	resolver     *inventory.RecipeResolver
	availability *inventory.AvailabilityChecker
}

// NewRecipeHandler construye el handler.
func NewRecipeHandler(resolver *inventory.RecipeResolver, availability *inventory.AvailabilityChecker) *RecipeHandler {
	return &RecipeHandler{resolver: resolver, availability: availability}
}

// Create godoc
// @Summary      Crear receta
// @Description  Los ingredientes se indican por nombre y se resuelven a IDs al guardar; los no encontrados se devuelven en unresolved.
// @Tags         recipes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRecipeRequest  true  "name, sellable_item_id, ingredients"
// @Success      201   {object}  dto.RecipeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/recipes [post]
func (h *RecipeHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRecipeRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	lines := make([]inventory.RecipeLineInput, 0, len(in.Ingredients))
	for _, l := range in.Ingredients {
		lines = append(lines, inventory.RecipeLineInput{IngredientName: l.Name, Quantity: l.Quantity, Notes: l.Notes})
	}
	res, err := h.resolver.SaveRecipe(c.UserContext(), inventory.SaveRecipeInput{
		Name:           in.Name,
		SellableItemID: in.SellableItemID,
		Servings:       in.Servings,
		Lines:          lines,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RecipeResponse{
		ID:             res.Recipe.ID,
		Name:           res.Recipe.Name,
		SellableItemID: res.Recipe.SellableItemID,
		Servings:       res.Recipe.Servings,
		Lines:          len(res.Recipe.Lines),
		Unresolved:     res.Unresolved,
	})
}

// Availability godoc
// @Summary      ¿Alcanzan los insumos para N porciones?
// @Tags         recipes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la receta"
// @Param        body  body  dto.AvailabilityRequest  true  "servings"
// @Success      200   {object}  inventory.AvailabilityResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/recipes/{id}/availability [post]
func (h *RecipeHandler) Availability(c *fiber.Ctx) error {
	var in dto.AvailabilityRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.availability.Check(c.UserContext(), c.Params("id"), in.Servings)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
