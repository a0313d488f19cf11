package inventory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// Escalas de las columnas NUMERIC del libro: cantidades (12,3) y costos (12,4).
const (
	QuantityScale int32 = 3
	CostScale     int32 = 4
)

// Quantize redondea una cantidad a la escala con la que se persiste, para que el
// movimiento devuelto sea el mismo que queda guardado.
func Quantize(q decimal.Decimal) decimal.Decimal {
	return q.Round(QuantityScale)
}

// QuantizeCost redondea un costo o valorización a la escala de persistencia.
func QuantizeCost(c decimal.Decimal) decimal.Decimal {
	return c.Round(CostScale)
}

// ClampDeduction aplica la política "descontar lo que existe, registrar lo que falta".
// Devuelve la cantidad aplicable (<= current) y el faltante.
func ClampDeduction(current, requested decimal.Decimal) (applied, shortfall decimal.Decimal) {
	if current.IsNegative() {
		current = decimal.Zero
	}
	if requested.LessThanOrEqual(current) {
		return requested, decimal.Zero
	}
	return current, requested.Sub(current)
}

// NextUnitCost implementa el costo vigente: la última entrada con costo reemplaza al anterior.
// Una entrada sin costo (0) conserva el costo actual.
func NextUnitCost(current, incoming decimal.Decimal) decimal.Decimal {
	if incoming.GreaterThan(decimal.Zero) {
		return incoming
	}
	return current
}

// Replayer reconstruye un saldo a partir del libro, movimiento a movimiento, en orden de creación.
type Replayer struct {
	balance decimal.Decimal
	lastSeq int64
	count   int
}

// Apply incorpora el siguiente movimiento. Falla si la cadena previous/new tiene huecos.
func (r *Replayer) Apply(m *entity.StockMovement) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("movimiento %s: %w", m.ID, err)
	}
	if !m.PreviousStock.Equal(r.balance) {
		return fmt.Errorf("movimiento %s (seq %d): saldo previo %s, esperado %s: %w",
			m.ID, m.Seq, m.PreviousStock, r.balance, domain.ErrInvalidMovement)
	}
	if r.count > 0 && m.Seq <= r.lastSeq {
		return fmt.Errorf("movimiento %s: secuencia %d fuera de orden: %w", m.ID, m.Seq, domain.ErrInvalidMovement)
	}
	r.balance = m.NewStock
	r.lastSeq = m.Seq
	r.count++
	return nil
}

// Balance saldo reconstruido hasta el último movimiento aplicado.
func (r *Replayer) Balance() decimal.Decimal { return r.balance }

// Count cantidad de movimientos aplicados.
func (r *Replayer) Count() int { return r.count }
