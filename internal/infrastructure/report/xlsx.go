package report

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Movimientos"

// LedgerXLSX genera la planilla: encabezado del ingrediente, una fila por movimiento y totales.
func LedgerXLSX(rep LedgerReport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), ledgerSheet); err != nil {
		return nil, fmt.Errorf("xlsx: hoja: %w", err)
	}

	ing := rep.Ingredient
	meta := [][]interface{}{
		{"Ingrediente", ing.Name},
		{"Unidad", ing.Unit},
		{"Saldo actual", ing.CurrentStock.String()},
		{"Período", period(rep)},
	}
	r := 1
	for _, line := range meta {
		if err := setRow(f, r, line); err != nil {
			return nil, err
		}
		r++
	}
	r++

	header := []interface{}{
		"Seq", "Fecha", "Tipo", "Cantidad", "Saldo anterior", "Saldo nuevo",
		"Costo unitario", "Valor", "Referencia", "Notas", "Usuario",
	}
	if err := setRow(f, r, header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		start, _ := excelize.CoordinatesToCellName(1, r)
		end, _ := excelize.CoordinatesToCellName(len(header), r)
		_ = f.SetCellStyle(ledgerSheet, start, end, bold)
	}
	r++

	for _, m := range rep.Movements {
		line := []interface{}{
			m.Seq,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			kindLabel(m),
			cellNumber(m.Signed()), cellNumber(m.PreviousStock), cellNumber(m.NewStock),
			cellNumber(m.UnitCost), cellNumber(m.TotalValue),
			m.Reference, m.Notes, m.CreatedBy,
		}
		if err := setRow(f, r, line); err != nil {
			return nil, err
		}
		r++
	}

	in, out := rep.Totals()
	r++
	if err := setRow(f, r, []interface{}{"Total entradas", cellNumber(in)}); err != nil {
		return nil, err
	}
	if err := setRow(f, r+1, []interface{}{"Total salidas", cellNumber(out)}); err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}

// cellNumber deja la celda numérica. Los valores del libro tienen a lo sumo 4 decimales
// y excelize escribe la representación float más corta, así que el texto guardado
// coincide con el decimal.
func cellNumber(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func setRow(f *excelize.File, r int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		return fmt.Errorf("xlsx: celda: %w", err)
	}
	if err := f.SetSheetRow(ledgerSheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx: fila %d: %w", r, err)
	}
	return nil
}
