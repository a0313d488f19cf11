package inventory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/application/dto"
	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// DefaultExpiryWindowDays ventana de ExpiringSoon cuando no se indica otra.
const DefaultExpiryWindowDays = 30

// ReorderUseCase genera la lista de reposición de ingredientes bajo su stock mínimo
// y la de ingredientes próximos a vencer.
type ReorderUseCase struct {
	ingredientRepo repository.IngredientRepository
	now            func() time.Time
}

// NewReorderUseCase construye el caso de uso de reposición.
func NewReorderUseCase(ingredientRepo repository.IngredientRepository) *ReorderUseCase {
	return &ReorderUseCase{ingredientRepo: ingredientRepo, now: time.Now}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *ReorderUseCase) WithClock(now func() time.Time) *ReorderUseCase {
	uc.now = now
	return uc
}

// LowStock devuelve los ingredientes activos con saldo <= mínimo, la cantidad sugerida
// de pedido (mínimo * 1.5 - saldo) y el costo estimado, primero el mayor déficit.
func (uc *ReorderUseCase) LowStock(ctx context.Context) ([]dto.ReorderSuggestionDTO, error) {
	items, err := uc.ingredientRepo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	factor := decimal.NewFromFloat(1.5)
	out := make([]dto.ReorderSuggestionDTO, 0, len(items))
	for _, ing := range items {
		if !ing.IsActive {
			continue
		}
		ideal := ing.MinimumStock.Mul(factor)
		suggested := ideal.Sub(ing.CurrentStock)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		out = append(out, dto.ReorderSuggestionDTO{
			IngredientID:      ing.ID,
			Name:              ing.Name,
			Unit:              ing.Unit,
			CurrentStock:      ing.CurrentStock,
			MinimumStock:      ing.MinimumStock,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
			UnitCost:          ing.UnitCost,
			EstimatedCost:     suggested.Mul(ing.UnitCost),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		defI := out[i].MinimumStock.Sub(out[i].CurrentStock)
		defJ := out[j].MinimumStock.Sub(out[j].CurrentStock)
		return defI.GreaterThan(defJ)
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}

// ExpiringSoon devuelve los ingredientes activos que vencen desde hoy hasta dentro de
// days días inclusive, el más próximo primero.
func (uc *ReorderUseCase) ExpiringSoon(ctx context.Context, days int) ([]dto.ExpiringIngredientDTO, error) {
	if days <= 0 {
		return nil, domain.ErrValidation
	}
	now := uc.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	items, err := uc.ingredientRepo.ListExpiring(ctx, today, today.AddDate(0, 0, days+1))
	if err != nil {
		return nil, err
	}
	out := make([]dto.ExpiringIngredientDTO, 0, len(items))
	for _, ing := range items {
		if !ing.IsActive || ing.ExpiryDate == nil {
			continue
		}
		expiry := ing.ExpiryDate.In(now.Location())
		day := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, now.Location())
		out = append(out, dto.ExpiringIngredientDTO{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			CurrentStock: ing.CurrentStock,
			ExpiryDate:   *ing.ExpiryDate,
			DaysLeft:     int(math.Round(day.Sub(today).Hours() / 24)),
			StockValue:   ing.TotalValue(),
		})
	}
	return out, nil
}
