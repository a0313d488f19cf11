package inventory

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	inv "github.com/jhoicas/bakery-stock/internal/domain/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// Ledger es el libro de movimientos: solo agrega, nunca modifica.
type Ledger struct {
	movRepo        repository.StockMovementRepository
	ingredientRepo repository.IngredientRepository
	pageSize       int
}

// NewLedger construye el libro. Los repositorios de lectura van sobre el pool.
func NewLedger(movRepo repository.StockMovementRepository, ingredientRepo repository.IngredientRepository, settings Settings) *Ledger {
	return &Ledger{
		movRepo:        movRepo,
		ingredientRepo: ingredientRepo,
		pageSize:       settings.withDefaults().HistoryPageSize,
	}
}

// Append valida el movimiento y lo escribe con el repositorio de la transacción del caller,
// la misma que actualiza el saldo.
func (l *Ledger) Append(ctx context.Context, movRepo repository.StockMovementRepository, m *entity.StockMovement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return movRepo.Create(ctx, m)
}

// Ingredient devuelve el ingrediente del libro o ErrIngredientNotFound.
func (l *Ledger) Ingredient(ctx context.Context, id string) (*entity.Ingredient, error) {
	ing, err := l.ingredientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ing == nil {
		return nil, domain.ErrIngredientNotFound
	}
	return ing, nil
}

// History recorre los movimientos de un ingrediente en orden de creación, paginando por Seq.
// Cada range vuelve a empezar desde el primer movimiento.
func (l *Ledger) History(ctx context.Context, ingredientID string, from, to *time.Time) iter.Seq2[*entity.StockMovement, error] {
	return func(yield func(*entity.StockMovement, error) bool) {
		var after int64
		for {
			page, err := l.movRepo.List(ctx, repository.MovementFilter{
				IngredientID: ingredientID,
				From:         from,
				To:           to,
				AfterSeq:     after,
				Limit:        l.pageSize,
			})
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
				after = m.Seq
			}
			if len(page) < l.pageSize {
				return
			}
		}
	}
}

// LedgerVerification resultado de reproducir el libro de un ingrediente desde cero.
type LedgerVerification struct {
	IngredientID  string          `json:"ingredient_id"`
	Movements     int             `json:"movements"`
	ReplayedStock decimal.Decimal `json:"replayed_stock" swaggertype:"string"`
	CurrentStock  decimal.Decimal `json:"current_stock" swaggertype:"string"`
	Consistent    bool            `json:"consistent"`
	Error         string          `json:"error,omitempty"`
}

// Verify reproduce todo el historial y lo compara con el saldo materializado.
// Es una lectura sin bloqueo: con escrituras concurrentes puede dar un falso negativo.
func (l *Ledger) Verify(ctx context.Context, ingredientID string) (*LedgerVerification, error) {
	var r inv.Replayer
	out := &LedgerVerification{IngredientID: ingredientID}
	for m, err := range l.History(ctx, ingredientID, nil, nil) {
		if err != nil {
			return nil, err
		}
		if err := r.Apply(m); err != nil {
			out.Error = err.Error()
			break
		}
	}
	ing, err := l.ingredientRepo.GetByID(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	if ing == nil {
		return nil, domain.ErrIngredientNotFound
	}
	out.Movements = r.Count()
	out.ReplayedStock = r.Balance()
	out.CurrentStock = ing.CurrentStock
	out.Consistent = out.Error == "" && r.Balance().Equal(ing.CurrentStock)
	return out, nil
}
