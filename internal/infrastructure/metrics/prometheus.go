// Package metrics expone en Prometheus los eventos operativos de inventario.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
)

var _ inventory.Metrics = (*Prometheus)(nil)

// Prometheus implementa inventory.Metrics con contadores registrados en reg.
type Prometheus struct {
	ordersProcessed   prometheus.Counter
	movementsWritten  prometheus.Counter
	duplicateTriggers prometheus.Counter
	shortages         *prometheus.CounterVec
	shortageQuantity  *prometheus.CounterVec
	receiptsApplied   prometheus.Counter
	receiptLines      prometheus.Counter
	concurrencyRetry  prometheus.Counter
}

// NewPrometheus crea y registra los colectores.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		ordersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "consumption", Name: "orders_processed_total",
			Help: "Pedidos cuyo consumo de insumos se aplicó.",
		}),
		movementsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "consumption", Name: "movements_total",
			Help: "Movimientos de salida escritos por pedidos.",
		}),
		duplicateTriggers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "consumption", Name: "duplicate_triggers_total",
			Help: "Disparos sobre pedidos ya procesados (sin efecto).",
		}),
		shortages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "stock", Name: "shortages_total",
			Help: "Descuentos recortados por stock insuficiente.",
		}, []string{"ingredient_id"}),
		shortageQuantity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "stock", Name: "shortage_quantity_total",
			Help: "Cantidad faltante acumulada por ingrediente.",
		}, []string{"ingredient_id"}),
		receiptsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "procurement", Name: "receipts_total",
			Help: "Recepciones de órdenes de compra aplicadas.",
		}),
		receiptLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "procurement", Name: "receipt_lines_total",
			Help: "Líneas de recepción con cambio de cantidad.",
		}),
		concurrencyRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bakery", Subsystem: "stock", Name: "concurrency_retries_total",
			Help: "Reintentos por saldo modificado entre lectura y escritura.",
		}),
	}
	reg.MustRegister(
		p.ordersProcessed, p.movementsWritten, p.duplicateTriggers,
		p.shortages, p.shortageQuantity,
		p.receiptsApplied, p.receiptLines, p.concurrencyRetry,
	)
	return p
}

func (p *Prometheus) OrderProcessed(movements int) {
	p.ordersProcessed.Inc()
	p.movementsWritten.Add(float64(movements))
}

func (p *Prometheus) DuplicateTrigger() { p.duplicateTriggers.Inc() }

func (p *Prometheus) Shortage(ingredientID string, shortfall decimal.Decimal) {
	p.shortages.WithLabelValues(ingredientID).Inc()
	// los contadores Prometheus son float64
	if f := shortfall.InexactFloat64(); f > 0 {
		p.shortageQuantity.WithLabelValues(ingredientID).Add(f)
	}
}

func (p *Prometheus) ReceiptApplied(lines int) {
	p.receiptsApplied.Inc()
	p.receiptLines.Add(float64(lines))
}

func (p *Prometheus) ConcurrencyRetry() { p.concurrencyRetry.Inc() }
