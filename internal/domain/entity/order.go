package entity

import "github.com/shopspring/decimal"

// Estados del pedido que publica el flujo de órdenes (entidad externa).
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderStatusEvent notificación de cambio de estado de un pedido.
type OrderStatusEvent struct {
	OrderNumber    string          `json:"order_number"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	NewStatus      string          `json:"new_status"`
	Lines          []OrderLineItem `json:"line_items"`
}

// OrderLineItem producto vendible y cantidad pedida.
type OrderLineItem struct {
	SellableItemID string          `json:"sellable_item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// IsQualifyingOrderStatus indica si el estado dispara el consumo de insumos.
func IsQualifyingOrderStatus(status string) bool {
	return status == OrderStatusConfirmed || status == OrderStatusPreparing
}
