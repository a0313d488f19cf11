package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bakery-stock/internal/application/dto"
	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// ProcurementHandler órdenes de compra y su recepción en almacén.
type ProcurementHandler struct {
	reconciler *inventory.ProcurementReconciler
}

// NewProcurementHandler construye el handler.
func NewProcurementHandler(reconciler *inventory.ProcurementReconciler) *ProcurementHandler {
	return &ProcurementHandler{reconciler: reconciler}
}

// Create godoc
// @Summary      Crear orden de compra (borrador)
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePurchaseOrderRequest  true  "supplier_id, items"
// @Success      201   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *ProcurementHandler) Create(c *fiber.Ctx) error {
	var in dto.CreatePurchaseOrderRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	items := make([]inventory.PurchaseOrderItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inventory.PurchaseOrderItemInput{
			IngredientID: it.IngredientID,
			Quantity:     it.Quantity,
			UnitCost:     it.UnitCost,
		})
	}
	po, err := h.reconciler.CreatePurchaseOrder(c.UserContext(), inventory.CreatePurchaseOrderInput{
		SupplierID:       in.SupplierID,
		ExpectedDelivery: in.ExpectedDelivery,
		Notes:            in.Notes,
		Actor:            GetUserID(c),
		Items:            items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toPurchaseOrderResponse(po))
}

// Transition godoc
// @Summary      Cambiar estado de una orden de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        number  path  string  true  "Número de orden (PO...)"
// @Param        body    body  dto.TransitionRequest  true  "status"
// @Success      200   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{number}/status [post]
func (h *ProcurementHandler) Transition(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	po, err := h.reconciler.Transition(c.UserContext(), c.Params("number"), in.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toPurchaseOrderResponse(po))
}

// Receive godoc
// @Summary      Registrar recepción (cantidades acumuladas por línea)
// @Description  Cada línea informa el total recibido hasta ahora; solo la diferencia entra al stock.
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        number  path  string  true  "Número de orden (PO...)"
// @Param        body    body  dto.ReceiveRequest  true  "received_items"
// @Success      200   {object}  inventory.ReceiptOutcome
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{number}/receive [post]
func (h *ProcurementHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	lines := make([]inventory.LineReceipt, 0, len(in.ReceivedItems))
	for _, it := range in.ReceivedItems {
		lines = append(lines, inventory.LineReceipt{LineID: it.ItemID, ReceivedQuantity: it.ReceivedQuantity})
	}
	out, err := h.reconciler.Receive(c.UserContext(), inventory.ReceiveInput{
		PONumber: c.Params("number"),
		Lines:    lines,
		Actor:    GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Pending godoc
// @Summary      Órdenes de compra pendientes de recibir
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  object{total=int,purchase_orders=[]dto.PurchaseOrderResponse}
// @Router       /api/purchase-orders/pending [get]
func (h *ProcurementHandler) Pending(c *fiber.Ctx) error {
	list, err := h.reconciler.PendingOrders(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PurchaseOrderResponse, 0, len(list))
	for _, po := range list {
		out = append(out, toPurchaseOrderResponse(po))
	}
	return c.JSON(fiber.Map{
		"total":           len(out),
		"purchase_orders": out,
	})
}

func toPurchaseOrderResponse(po *entity.PurchaseOrder) dto.PurchaseOrderResponse {
	out := dto.PurchaseOrderResponse{
		ID:               po.ID,
		PONumber:         po.PONumber,
		SupplierID:       po.SupplierID,
		Status:           po.Status,
		OrderDate:        po.OrderDate,
		ExpectedDelivery: po.ExpectedDelivery,
		DeliveryDate:     po.DeliveryDate,
		Subtotal:         po.Subtotal(),
		Items:            make([]dto.PurchaseOrderItemResponse, 0, len(po.Items)),
	}
	for _, it := range po.Items {
		out.Items = append(out.Items, dto.PurchaseOrderItemResponse{
			ID:               it.ID,
			IngredientID:     it.IngredientID,
			OrderedQuantity:  it.OrderedQuantity,
			ReceivedQuantity: it.ReceivedQuantity,
			UnitCost:         it.UnitCost,
		})
	}
	return out
}
