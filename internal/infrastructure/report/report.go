// Package report exporta el historial de movimientos de un ingrediente a XLSX (excelize) y PDF (maroto).
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

// Formatos soportados.
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Content types de cada formato.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// LedgerReport datos de un reporte de movimientos.
type LedgerReport struct {
	Ingredient  *entity.Ingredient
	Movements   []*entity.StockMovement
	From        *time.Time
	To          *time.Time
	GeneratedAt time.Time
}

// Totals entradas y salidas del período, con signo aplicado a los ajustes.
func (r LedgerReport) Totals() (in, out decimal.Decimal) {
	in, out = decimal.Zero, decimal.Zero
	for _, m := range r.Movements {
		s := m.Signed()
		if s.IsPositive() {
			in = in.Add(s)
		} else {
			out = out.Add(s.Neg())
		}
	}
	return in, out
}

// Exporter genera el reporte en el formato pedido.
type Exporter struct{}

// NewExporter construye el exportador.
func NewExporter() *Exporter { return &Exporter{} }

// Export devuelve los bytes del archivo y su content type.
func (e *Exporter) Export(ctx context.Context, format string, rep LedgerReport) ([]byte, string, error) {
	if rep.Ingredient == nil {
		return nil, "", fmt.Errorf("report: ingrediente requerido")
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now()
	}
	switch format {
	case FormatXLSX:
		data, err := LedgerXLSX(rep)
		return data, ContentTypeXLSX, err
	case FormatPDF:
		data, err := LedgerPDF(rep)
		return data, ContentTypePDF, err
	}
	return nil, "", fmt.Errorf("report: formato %q no soportado", format)
}

func period(rep LedgerReport) string {
	from, to := "inicio", "hoy"
	if rep.From != nil {
		from = rep.From.Format("02/01/2006")
	}
	if rep.To != nil {
		to = rep.To.Format("02/01/2006")
	}
	return from + " - " + to
}

func kindLabel(m *entity.StockMovement) string {
	switch m.Kind {
	case entity.MovementKindIn:
		return "Entrada"
	case entity.MovementKindOut:
		return "Salida"
	case entity.MovementKindWaste:
		return "Merma"
	case entity.MovementKindAdjustment:
		if m.Signed().IsNegative() {
			return "Ajuste (-)"
		}
		return "Ajuste (+)"
	}
	return m.Kind
}
