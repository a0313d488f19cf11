package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una orden de compra a proveedor.
const (
	POStatusDraft             = "draft"
	POStatusSent              = "sent"
	POStatusConfirmed         = "confirmed"
	POStatusPartiallyReceived = "partially_received"
	POStatusReceived          = "received"
	POStatusCancelled         = "cancelled"
)

var poTransitions = map[string][]string{
	POStatusDraft:             {POStatusSent, POStatusCancelled},
	POStatusSent:              {POStatusConfirmed, POStatusPartiallyReceived, POStatusReceived, POStatusCancelled},
	POStatusConfirmed:         {POStatusPartiallyReceived, POStatusReceived, POStatusCancelled},
	POStatusPartiallyReceived: {POStatusReceived, POStatusCancelled},
}

// PurchaseOrder orden de compra; la mutan las recepciones de mercancía.
type PurchaseOrder struct {
	ID               string
	PONumber         string
	SupplierID       string
	Status           string
	OrderDate        time.Time
	ExpectedDelivery *time.Time
	DeliveryDate     *time.Time
	Notes            string
	CreatedBy        string
	Items            []PurchaseOrderItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PurchaseOrderItem línea de la orden. ReceivedQuantity <= OrderedQuantity.
type PurchaseOrderItem struct {
	ID               string
	PurchaseOrderID  string
	IngredientID     string
	OrderedQuantity  decimal.Decimal
	ReceivedQuantity decimal.Decimal
	UnitCost         decimal.Decimal
}

// IsValidPOStatus indica si s es un estado conocido.
func IsValidPOStatus(s string) bool {
	switch s {
	case POStatusDraft, POStatusSent, POStatusConfirmed,
		POStatusPartiallyReceived, POStatusReceived, POStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo indica si la orden puede pasar al estado target.
func (o *PurchaseOrder) CanTransitionTo(target string) bool {
	for _, s := range poTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// CanReceive indica si la orden admite recepciones.
func (o *PurchaseOrder) CanReceive() bool {
	return o.Status != POStatusDraft && o.Status != POStatusCancelled
}

// Item busca una línea por ID.
func (o *PurchaseOrder) Item(id string) *PurchaseOrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}

// IsFullyReceived es verdadero si todas las líneas recibieron al menos lo pedido.
func (o *PurchaseOrder) IsFullyReceived() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, it := range o.Items {
		if it.ReceivedQuantity.LessThan(it.OrderedQuantity) {
			return false
		}
	}
	return true
}

// HasReceipts indica si alguna línea registra mercancía recibida.
func (o *PurchaseOrder) HasReceipts() bool {
	for _, it := range o.Items {
		if it.ReceivedQuantity.GreaterThan(decimal.Zero) {
			return true
		}
	}
	return false
}

// Subtotal suma cantidad pedida por costo unitario.
func (o *PurchaseOrder) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.OrderedQuantity.Mul(it.UnitCost))
	}
	return total
}
