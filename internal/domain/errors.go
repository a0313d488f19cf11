package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrValidation          = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrInvalidMovement     = errors.New("movimiento de inventario inválido")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrIngredientNotFound  = errors.New("ingrediente no encontrado")
	ErrRecipeNotFound      = errors.New("receta no encontrada")
	ErrInactiveIngredient  = errors.New("ingrediente inactivo")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia sobre el saldo")
	ErrOrderLocked         = errors.New("pedido en proceso por otra instancia")
)
