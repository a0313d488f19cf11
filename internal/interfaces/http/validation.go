package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/application/dto"
	"github.com/jhoicas/bakery-stock/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Los campos decimal.Decimal se validan como float64 (required, gt, gte...).
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	// Nombres de campo según el tag json para que el cliente los reconozca.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON parsea y valida el body. Si falla ya escribió la respuesta 400 y devuelve false.
func bindJSON(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    "VALIDATION",
			Message: "datos inválidos",
			Fields:  validationFields(err),
		})
	}
	return true, nil
}

// validationFields campo -> regla incumplida.
func validationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

// writeError traduce los errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidMovement):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrIngredientNotFound):
		status, code = fiber.StatusNotFound, "INGREDIENT_NOT_FOUND"
	case errors.Is(err, domain.ErrRecipeNotFound):
		status, code = fiber.StatusNotFound, "RECIPE_NOT_FOUND"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInactiveIngredient):
		status, code = fiber.StatusUnprocessableEntity, "INACTIVE_INGREDIENT"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		status, code = fiber.StatusConflict, "CONCURRENCY_CONFLICT"
		msg = "el saldo cambió durante la operación, reintente"
	case errors.Is(err, domain.ErrOrderLocked):
		status, code = fiber.StatusConflict, "ORDER_LOCKED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
