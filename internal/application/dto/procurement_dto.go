package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderRequest body para POST /api/purchase-orders.
type CreatePurchaseOrderRequest struct {
	SupplierID       string                     `json:"supplier_id" validate:"required"`
	ExpectedDelivery *time.Time                 `json:"expected_delivery,omitempty"`
	Notes            string                     `json:"notes"`
	Items            []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PurchaseOrderItemRequest línea pedida.
type PurchaseOrderItemRequest struct {
	IngredientID string          `json:"ingredient_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" swaggertype:"string" validate:"gt=0"`
	UnitCost     decimal.Decimal `json:"unit_cost" swaggertype:"string" validate:"gte=0"`
}

// TransitionRequest body para POST /api/purchase-orders/:number/status.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent confirmed partially_received received cancelled"`
}

// ReceiveRequest body para POST /api/purchase-orders/:number/receive.
type ReceiveRequest struct {
	ReceivedItems []LineReceiptRequest `json:"received_items" validate:"required,min=1,dive"`
}

// LineReceiptRequest cantidad recibida acumulada de una línea.
type LineReceiptRequest struct {
	ItemID           string          `json:"item_id" validate:"required"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity" swaggertype:"string"`
}

// PurchaseOrderItemResponse línea de la orden.
type PurchaseOrderItemResponse struct {
	ID               string          `json:"id"`
	IngredientID     string          `json:"ingredient_id"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity" swaggertype:"string"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity" swaggertype:"string"`
	UnitCost         decimal.Decimal `json:"unit_cost" swaggertype:"string"`
}

// PurchaseOrderResponse orden de compra.
type PurchaseOrderResponse struct {
	ID               string                      `json:"id"`
	PONumber         string                      `json:"po_number"`
	SupplierID       string                      `json:"supplier_id"`
	Status           string                      `json:"status"`
	OrderDate        time.Time                   `json:"order_date"`
	ExpectedDelivery *time.Time                  `json:"expected_delivery,omitempty"`
	DeliveryDate     *time.Time                  `json:"delivery_date,omitempty"`
	Subtotal         decimal.Decimal             `json:"subtotal" swaggertype:"string"`
	Items            []PurchaseOrderItemResponse `json:"items"`
}
