package report

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/bakery-stock/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 122, Green: 72, Blue: 33}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// LedgerPDF genera el kardex del ingrediente en A4 horizontal.
func LedgerPDF(rep LedgerReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Movimientos de "+rep.Ingredient.Name, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(rep))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	for _, mv := range rep.Movements {
		m.AddRows(movementRow(mv))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(rep))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(rep LedgerReport) core.Row {
	ing := rep.Ingredient
	return row.New(18).Add(
		col.New(8).Add(
			text.New(ing.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Unidad: %s   |   Saldo actual: %s   |   Mínimo: %s",
				ing.Unit, ing.CurrentStock.String(), ing.MinimumStock.String()),
				props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("KARDEX DE INGREDIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1}),
			text.New("Período: "+period(rep), props.Text{Size: 8, Align: align.Right, Top: 7}),
			text.New("Generado: "+rep.GeneratedAt.Format("02/01/2006 15:04"), props.Text{Size: 7, Align: align.Right, Top: 12, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 7, Align: a, Color: colorPrimary, Top: 2}))
	}
	return row.New(7).Add(
		h("Seq", 1, align.Center),
		h("Fecha", 2, align.Left),
		h("Tipo", 1, align.Left),
		h("Cantidad", 1, align.Right),
		h("Anterior", 1, align.Right),
		h("Nuevo", 1, align.Right),
		h("Valor", 1, align.Right),
		h("Referencia", 2, align.Left),
		h("Usuario", 2, align.Left),
	)
}

func movementRow(mv *entity.StockMovement) core.Row {
	c := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1}))
	}
	return row.New(5).Add(
		c(fmt.Sprintf("%d", mv.Seq), 1, align.Center),
		c(mv.CreatedAt.Format("02/01/2006 15:04"), 2, align.Left),
		c(kindLabel(mv), 1, align.Left),
		c(mv.Signed().String(), 1, align.Right),
		c(mv.PreviousStock.String(), 1, align.Right),
		c(mv.NewStock.String(), 1, align.Right),
		c(mv.TotalValue.StringFixed(2), 1, align.Right),
		c(mv.Reference, 2, align.Left),
		c(mv.CreatedBy, 2, align.Left),
	)
}

func totalsRow(rep LedgerReport) core.Row {
	in, out := rep.Totals()
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2})
	}
	return row.New(14).Add(
		col.New(6),
		col.New(3).Add(label("Total entradas:"), text.New("Total salidas:", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Right: 2, Top: 5})),
		col.New(3).Add(
			text.New(in.String(), props.Text{Size: 8, Align: align.Right}),
			text.New(out.String(), props.Text{Size: 8, Align: align.Right, Top: 5}),
		),
	)
}
