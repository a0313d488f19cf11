package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bakery-stock/internal/application/dto"
	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// ConsumptionHandler recibe los cambios de estado de pedidos y expone el resultado de su procesamiento.
type ConsumptionHandler struct {
	engine *inventory.ConsumptionEngine
}

// NewConsumptionHandler construye el handler.
func NewConsumptionHandler(engine *inventory.ConsumptionEngine) *ConsumptionHandler {
	return &ConsumptionHandler{engine: engine}
}

// OrderEvent godoc
// @Summary      Notificar cambio de estado de un pedido
// @Description  confirmed o preparing descuentan los insumos de la receta una sola vez por pedido.
// @Tags         consumption
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderStatusEventRequest  true  "order_number, new_status, line_items"
// @Success      200   {object}  inventory.ConsumptionOutcome
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/consumption/order-events [post]
func (h *ConsumptionHandler) OrderEvent(c *fiber.Ctx) error {
	var in dto.OrderStatusEventRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	ev := entity.OrderStatusEvent{
		OrderNumber:    in.OrderNumber,
		PreviousStatus: in.PreviousStatus,
		NewStatus:      in.NewStatus,
		Lines:          make([]entity.OrderLineItem, 0, len(in.LineItems)),
	}
	for _, li := range in.LineItems {
		ev.Lines = append(ev.Lines, entity.OrderLineItem{SellableItemID: li.SellableItemID, Quantity: li.Quantity})
	}
	out, err := h.engine.HandleOrderStatusChange(c.UserContext(), ev)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetOrder godoc
// @Summary      Resultado del consumo de un pedido
// @Tags         consumption
// @Security     Bearer
// @Produce      json
// @Param        number  path  string  true  "Número de pedido"
// @Success      200  {object}  object{order_number=string,trigger_status=string,movement_count=int,warnings=[]entity.ConsumptionWarning,processed_at=string}
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/consumption/orders/{number} [get]
func (h *ConsumptionHandler) GetOrder(c *fiber.Ctx) error {
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "número de pedido requerido"})
	}
	rec, err := h.engine.ConsumptionStatus(c.UserContext(), number)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"order_number":   rec.OrderNumber,
		"trigger_status": rec.TriggerStatus,
		"movement_count": rec.MovementCount,
		"warnings":       rec.Warnings,
		"processed_at":   rec.ProcessedAt,
	})
}
