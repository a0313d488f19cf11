package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/bakery-stock/internal/application/dto"
	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/report"
)

const maxMovementsJSON = 1000

// IngredientHandler operaciones manuales sobre el stock y consultas del libro de movimientos.
type IngredientHandler struct {
	register *inventory.StockRegister
	ledger   *inventory.Ledger
	reorder  *inventory.ReorderUseCase
	exporter *report.Exporter
}

// NewIngredientHandler construye el handler.
func NewIngredientHandler(
	register *inventory.StockRegister,
	ledger *inventory.Ledger,
	reorder *inventory.ReorderUseCase,
	exporter *report.Exporter,
) *IngredientHandler {
	return &IngredientHandler{register: register, ledger: ledger, reorder: reorder, exporter: exporter}
}

// Create godoc
// @Summary      Alta de ingrediente
// @Description  El saldo inicial (opening_stock) se registra como movimiento de entrada con referencia APERTURA.
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateIngredientRequest  true  "name, unit, minimum_stock, unit_cost, opening_stock"
// @Success      201   {object}  dto.IngredientResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ingredients [post]
func (h *IngredientHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateIngredientRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	ing, err := h.register.CreateIngredient(c.UserContext(), inventory.CreateIngredientInput{
		Name:         in.Name,
		Unit:         in.Unit,
		MinimumStock: in.MinimumStock,
		UnitCost:     in.UnitCost,
		OpeningStock: in.OpeningStock,
		SupplierID:   in.SupplierID,
		ExpiryDate:   in.ExpiryDate,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IngredientResponse{
		ID:           ing.ID,
		Name:         ing.Name,
		Unit:         ing.Unit,
		CurrentStock: ing.CurrentStock,
		MinimumStock: ing.MinimumStock,
		UnitCost:     ing.UnitCost,
		SupplierID:   ing.SupplierID,
		ExpiryDate:   ing.ExpiryDate,
		IsActive:     ing.IsActive,
	})
}

// Deduct godoc
// @Summary      Descuento manual de stock
// @Description  Se recorta a lo disponible; shortfall indica lo que no se pudo descontar.
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del ingrediente"
// @Param        body  body  dto.StockAdjustmentRequest  true  "amount, reason"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/deduct [post]
func (h *IngredientHandler) Deduct(c *fiber.Ctx) error {
	var in dto.StockAdjustmentRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	change, err := h.register.ManualDeduct(c.UserContext(), inventory.ManualDeductionInput{
		IngredientID: c.Params("id"),
		Amount:       in.Amount,
		Reason:       in.Reason,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockChangeResponse(change))
}

// Waste godoc
// @Summary      Registrar merma
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del ingrediente"
// @Param        body  body  dto.StockAdjustmentRequest  true  "amount, reason"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/waste [post]
func (h *IngredientHandler) Waste(c *fiber.Ctx) error {
	var in dto.StockAdjustmentRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	change, err := h.register.RecordWaste(c.UserContext(), inventory.ManualDeductionInput{
		IngredientID: c.Params("id"),
		Amount:       in.Amount,
		Reason:       in.Reason,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockChangeResponse(change))
}

// Stocktake godoc
// @Summary      Conteo físico
// @Description  Fija el saldo al valor contado registrando la diferencia como ajuste.
// @Tags         ingredients
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del ingrediente"
// @Param        body  body  dto.StocktakeRequest  true  "counted, reason"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/stocktake [post]
func (h *IngredientHandler) Stocktake(c *fiber.Ctx) error {
	var in dto.StocktakeRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	change, err := h.register.SetStock(c.UserContext(), inventory.StocktakeInput{
		IngredientID: c.Params("id"),
		Counted:      in.Counted,
		Reason:       in.Reason,
		Actor:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockChangeResponse(change))
}

// Movements godoc
// @Summary      Historial de movimientos de un ingrediente
// @Description  format=xlsx|pdf descarga el reporte; sin format devuelve JSON.
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce      application/pdf
// @Param        id      path   string  true   "ID del ingrediente"
// @Param        from    query  string  false  "Desde (YYYY-MM-DD o RFC3339)"
// @Param        to      query  string  false  "Hasta (YYYY-MM-DD o RFC3339)"
// @Param        format  query  string  false  "xlsx | pdf"
// @Success      200  {object}  object{ingredient_id=string,current_stock=string,total=int,movements=[]dto.MovementDTO}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/movements [get]
func (h *IngredientHandler) Movements(c *fiber.Ctx) error {
	from, err := parseDateQuery(c.Query("from"), false)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_DATE", Message: err.Error()})
	}
	to, err := parseDateQuery(c.Query("to"), true)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_DATE", Message: err.Error()})
	}
	format := c.Query("format")
	if format != "" && format != report.FormatXLSX && format != report.FormatPDF {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FORMAT", Message: "format debe ser xlsx o pdf"})
	}

	ctx := c.UserContext()
	ing, err := h.ledger.Ingredient(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	limit := maxMovementsJSON
	if format != "" {
		limit = 0
	}
	var movements []*entity.StockMovement
	for m, err := range h.ledger.History(ctx, ing.ID, from, to) {
		if err != nil {
			return writeError(c, err)
		}
		movements = append(movements, m)
		if limit > 0 && len(movements) == limit {
			break
		}
	}

	if format == "" {
		out := make([]dto.MovementDTO, 0, len(movements))
		for _, m := range movements {
			out = append(out, toMovementDTO(m))
		}
		return c.JSON(fiber.Map{
			"ingredient_id": ing.ID,
			"current_stock": ing.CurrentStock,
			"total":         len(out),
			"movements":     out,
		})
	}

	data, contentType, err := h.exporter.Export(ctx, format, report.LedgerReport{
		Ingredient: ing,
		Movements:  movements,
		From:       from,
		To:         to,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "EXPORT_FAILED", Message: err.Error()})
	}
	filename := fmt.Sprintf("movimientos-%s-%s.%s", ing.ID, time.Now().Format("20060102"), format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}

// Verify godoc
// @Summary      Reproduce el historial y lo compara con el saldo actual
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ingrediente"
// @Success      200  {object}  inventory.LedgerVerification
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ingredients/{id}/verify [get]
func (h *IngredientHandler) Verify(c *fiber.Ctx) error {
	out, err := h.ledger.Verify(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// LowStock godoc
// @Summary      Lista de reposición
// @Description  Ingredientes activos en o bajo su stock mínimo con la cantidad sugerida de pedido.
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  object{total=int,suggestions=[]dto.ReorderSuggestionDTO}
// @Router       /api/ingredients/low-stock [get]
func (h *IngredientHandler) LowStock(c *fiber.Ctx) error {
	list, err := h.reorder.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":       len(list),
		"suggestions": list,
	})
}

// ExpiringSoon godoc
// @Summary      Ingredientes próximos a vencer
// @Description  Activos con fecha de vencimiento entre hoy y hoy + days (30 por defecto).
// @Tags         ingredients
// @Security     Bearer
// @Produce      json
// @Param        days  query  int  false  "Ventana en días (1-365)"
// @Success      200  {object}  object{days=int,total=int,ingredients=[]dto.ExpiringIngredientDTO}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ingredients/expiring-soon [get]
func (h *IngredientHandler) ExpiringSoon(c *fiber.Ctx) error {
	days := c.QueryInt("days", inventory.DefaultExpiryWindowDays)
	if days < 1 || days > 365 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "days debe estar entre 1 y 365"})
	}
	list, err := h.reorder.ExpiringSoon(c.UserContext(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"days":        days,
		"total":       len(list),
		"ingredients": list,
	})
}

// parseDateQuery acepta YYYY-MM-DD o RFC3339. Una fecha sin hora como límite superior cubre el día completo.
func parseDateQuery(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida %q", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func toStockChangeResponse(ch *inventory.StockChange) dto.StockChangeResponse {
	out := dto.StockChangeResponse{
		IngredientID:  ch.IngredientID,
		Requested:     ch.Requested,
		Applied:       ch.Applied,
		Shortfall:     ch.Shortfall,
		PreviousStock: ch.PreviousStock,
		NewStock:      ch.NewStock,
	}
	if ch.Movement != nil {
		out.Reference = ch.Movement.Reference
	}
	return out
}

func toMovementDTO(m *entity.StockMovement) dto.MovementDTO {
	return dto.MovementDTO{
		ID:            m.ID,
		Seq:           m.Seq,
		IngredientID:  m.IngredientID,
		Kind:          m.Kind,
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		UnitCost:      m.UnitCost,
		TotalValue:    m.TotalValue,
		Reference:     m.Reference,
		Notes:         m.Notes,
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
	}
}
