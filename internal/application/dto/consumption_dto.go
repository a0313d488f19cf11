package dto

import "github.com/shopspring/decimal"

// OrderStatusEventRequest body para POST /api/consumption/order-events.
type OrderStatusEventRequest struct {
	OrderNumber    string                 `json:"order_number" validate:"required,max=50"`
	PreviousStatus string                 `json:"previous_status"`
	NewStatus      string                 `json:"new_status" validate:"required"`
	LineItems      []OrderLineItemRequest `json:"line_items" validate:"dive"`
}

// OrderLineItemRequest producto vendible y cantidad.
type OrderLineItemRequest struct {
	SellableItemID string          `json:"sellable_item_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity" swaggertype:"string"`
}
