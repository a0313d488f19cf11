package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	inv "github.com/jhoicas/bakery-stock/internal/domain/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// StockRegister mantiene el saldo materializado de cada ingrediente consistente con el libro.
// Cada operación bloquea la fila del ingrediente (SELECT FOR UPDATE), calcula el nuevo saldo,
// lo escribe con guarda CAS y agrega el movimiento, todo en la misma transacción.
// Las cantidades se redondean a la escala del libro (3 decimales) antes de recortar.
type StockRegister struct {
	txRunner       TxRunner
	ingredientRepo repository.IngredientRepository
	ledger         *Ledger
	settings       Settings
	metrics        Metrics
	log            zerolog.Logger
	now            func() time.Time
}

// NewStockRegister construye el registro de stock.
func NewStockRegister(
	txRunner TxRunner,
	ingredientRepo repository.IngredientRepository,
	ledger *Ledger,
	settings Settings,
	metrics Metrics,
	log zerolog.Logger,
) *StockRegister {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &StockRegister{
		txRunner:       txRunner,
		ingredientRepo: ingredientRepo,
		ledger:         ledger,
		settings:       settings.withDefaults(),
		metrics:        metrics,
		log:            log.With().Str("component", "stock_register").Logger(),
		now:            time.Now,
	}
}

// DeductInput solicitud de salida. Kind vacío equivale a "out".
type DeductInput struct {
	IngredientID  string
	Quantity      decimal.Decimal
	Kind          string
	Reference     string
	Notes         string
	Actor         string
	RequireActive bool
}

// AddInput solicitud de entrada. Kind vacío equivale a "in".
type AddInput struct {
	IngredientID string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	Kind         string
	Reference    string
	Notes        string
	Actor        string
}

// StockChange resultado de una operación sobre el saldo.
// Shortfall > 0 es la advertencia de stock insuficiente: no es un error.
type StockChange struct {
	IngredientID  string
	Requested     decimal.Decimal
	Applied       decimal.Decimal
	Shortfall     decimal.Decimal
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	Inactive      bool                  // el ingrediente estaba desactivado
	Movement      *entity.StockMovement // nil si no se aplicó cantidad
}

// Deduct descuenta hasta lo disponible en su propia transacción.
func (r *StockRegister) Deduct(ctx context.Context, in DeductInput) (*StockChange, error) {
	var change *StockChange
	err := withRetry(ctx, r.settings, r.metrics, func(ctx context.Context) error {
		return r.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, ingredientRepo repository.IngredientRepository) error {
			c, err := r.DeductInTx(ctx, movRepo, ingredientRepo, in)
			change = c
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// Add suma cantidad al saldo en su propia transacción.
func (r *StockRegister) Add(ctx context.Context, in AddInput) (*StockChange, error) {
	var change *StockChange
	err := withRetry(ctx, r.settings, r.metrics, func(ctx context.Context) error {
		return r.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, ingredientRepo repository.IngredientRepository) error {
			c, err := r.AddInTx(ctx, movRepo, ingredientRepo, in)
			change = c
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// DeductInTx ejecuta la salida con los repositorios de la transacción del caller.
func (r *StockRegister) DeductInTx(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	in DeductInput,
) (*StockChange, error) {
	if in.IngredientID == "" || !in.Quantity.GreaterThan(decimal.Zero) {
		return nil, domain.ErrValidation
	}
	qty := inv.Quantize(in.Quantity)
	kind := in.Kind
	if kind == "" {
		kind = entity.MovementKindOut
	}

	ing, err := ingredientRepo.GetForUpdate(ctx, in.IngredientID)
	if err != nil {
		return nil, err
	}
	if ing == nil {
		return nil, domain.ErrIngredientNotFound
	}
	if in.RequireActive && !ing.IsActive {
		return nil, domain.ErrInactiveIngredient
	}

	applied, shortfall := inv.ClampDeduction(ing.CurrentStock, qty)
	change := &StockChange{
		IngredientID:  ing.ID,
		Requested:     qty,
		Applied:       applied,
		Shortfall:     shortfall,
		PreviousStock: ing.CurrentStock,
		NewStock:      ing.CurrentStock.Sub(applied),
		Inactive:      !ing.IsActive,
	}
	if shortfall.GreaterThan(decimal.Zero) {
		r.log.Warn().
			Str("ingredient_id", ing.ID).
			Str("ingredient", ing.Name).
			Str("requested", qty.String()).
			Str("available", ing.CurrentStock.String()).
			Str("reference", in.Reference).
			Msg("stock insuficiente, se descuenta lo disponible")
	}
	if applied.IsZero() {
		return change, nil
	}

	mov, err := r.write(ctx, movRepo, ingredientRepo, ing, kind, applied, change.NewStock, ing.UnitCost, in.Reference, in.Notes, in.Actor)
	if err != nil {
		return nil, err
	}
	change.Movement = mov
	return change, nil
}

// AddInTx ejecuta la entrada con los repositorios de la transacción del caller.
// El costo entrante reemplaza al vigente (costo actual, no promedio ponderado).
func (r *StockRegister) AddInTx(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	in AddInput,
) (*StockChange, error) {
	qty := inv.Quantize(in.Quantity)
	if in.IngredientID == "" || !qty.GreaterThan(decimal.Zero) || in.UnitCost.IsNegative() {
		return nil, domain.ErrValidation
	}
	kind := in.Kind
	if kind == "" {
		kind = entity.MovementKindIn
	}

	ing, err := ingredientRepo.GetForUpdate(ctx, in.IngredientID)
	if err != nil {
		return nil, err
	}
	if ing == nil {
		return nil, domain.ErrIngredientNotFound
	}

	cost := inv.NextUnitCost(ing.UnitCost, inv.QuantizeCost(in.UnitCost))
	change := &StockChange{
		IngredientID:  ing.ID,
		Requested:     qty,
		Applied:       qty,
		Shortfall:     decimal.Zero,
		PreviousStock: ing.CurrentStock,
		NewStock:      ing.CurrentStock.Add(qty),
	}
	mov, err := r.write(ctx, movRepo, ingredientRepo, ing, kind, qty, change.NewStock, cost, in.Reference, in.Notes, in.Actor)
	if err != nil {
		return nil, err
	}
	change.Movement = mov
	return change, nil
}

// write agrega el movimiento y escribe el saldo con guarda sobre el saldo leído.
func (r *StockRegister) write(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	ing *entity.Ingredient,
	kind string,
	qty, newStock, unitCost decimal.Decimal,
	reference, notes, actor string,
) (*entity.StockMovement, error) {
	if actor == "" {
		actor = r.settings.SystemActor
	}
	mov := &entity.StockMovement{
		IngredientID:  ing.ID,
		Kind:          kind,
		Quantity:      qty,
		PreviousStock: ing.CurrentStock,
		NewStock:      newStock,
		UnitCost:      unitCost,
		TotalValue:    inv.QuantizeCost(qty.Mul(unitCost)),
		Reference:     reference,
		Notes:         notes,
		CreatedBy:     actor,
		CreatedAt:     r.now(),
	}
	if err := r.ledger.Append(ctx, movRepo, mov); err != nil {
		return nil, err
	}
	if err := ingredientRepo.UpdateStock(ctx, ing.ID, ing.CurrentStock, newStock, unitCost); err != nil {
		return nil, err
	}
	return mov, nil
}

// ManualDeductionInput descuento manual de un operador.
type ManualDeductionInput struct {
	IngredientID string
	Amount       decimal.Decimal
	Reason       string
	Actor        string
}

// ManualDeduct descuenta una cantidad arbitraria por el mismo camino atómico.
// Rechaza cantidades <= 0 e ingredientes inactivos; el resto se recorta a lo disponible.
func (r *StockRegister) ManualDeduct(ctx context.Context, in ManualDeductionInput) (*StockChange, error) {
	if !in.Amount.GreaterThan(decimal.Zero) {
		return nil, domain.ErrValidation
	}
	reason := in.Reason
	if reason == "" {
		reason = "Manual deduction"
	}
	return r.Deduct(ctx, DeductInput{
		IngredientID:  in.IngredientID,
		Quantity:      in.Amount,
		Kind:          entity.MovementKindOut,
		Reference:     r.manualReference("MANUAL"),
		Notes:         "Descuento manual: " + reason,
		Actor:         in.Actor,
		RequireActive: true,
	})
}

// RecordWaste registra una merma (producto vencido, dañado...).
func (r *StockRegister) RecordWaste(ctx context.Context, in ManualDeductionInput) (*StockChange, error) {
	if !in.Amount.GreaterThan(decimal.Zero) {
		return nil, domain.ErrValidation
	}
	return r.Deduct(ctx, DeductInput{
		IngredientID:  in.IngredientID,
		Quantity:      in.Amount,
		Kind:          entity.MovementKindWaste,
		Reference:     r.manualReference("WASTE"),
		Notes:         "Merma: " + in.Reason,
		Actor:         in.Actor,
		RequireActive: true,
	})
}

// StocktakeInput conteo físico: fija el saldo a Counted.
type StocktakeInput struct {
	IngredientID string
	Counted      decimal.Decimal
	Reason       string
	Actor        string
}

// SetStock registra la diferencia entre el conteo y el saldo como ajuste positivo o negativo.
// Si no hay diferencia no escribe movimiento.
func (r *StockRegister) SetStock(ctx context.Context, in StocktakeInput) (*StockChange, error) {
	if in.IngredientID == "" || in.Counted.IsNegative() {
		return nil, domain.ErrValidation
	}
	counted := inv.Quantize(in.Counted)
	var change *StockChange
	err := withRetry(ctx, r.settings, r.metrics, func(ctx context.Context) error {
		return r.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, ingredientRepo repository.IngredientRepository) error {
			ing, err := ingredientRepo.GetForUpdate(ctx, in.IngredientID)
			if err != nil {
				return err
			}
			if ing == nil {
				return domain.ErrIngredientNotFound
			}
			if !ing.IsActive {
				return domain.ErrInactiveIngredient
			}
			diff := counted.Sub(ing.CurrentStock)
			change = &StockChange{
				IngredientID:  ing.ID,
				Requested:     diff.Abs(),
				Applied:       diff.Abs(),
				Shortfall:     decimal.Zero,
				PreviousStock: ing.CurrentStock,
				NewStock:      counted,
			}
			if diff.IsZero() {
				return nil
			}
			mov, err := r.write(ctx, movRepo, ingredientRepo, ing, entity.MovementKindAdjustment, diff.Abs(), counted,
				ing.UnitCost, r.manualReference("MANUAL"), "Conteo físico: "+in.Reason, in.Actor)
			if err != nil {
				return err
			}
			change.Movement = mov
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// OpeningReference referencia del movimiento con el saldo inicial de un ingrediente.
const OpeningReference = "APERTURA"

// CreateIngredientInput alta de ingrediente. OpeningStock > 0 entra como movimiento "in".
type CreateIngredientInput struct {
	Name         string
	Unit         string
	MinimumStock decimal.Decimal
	UnitCost     decimal.Decimal
	OpeningStock decimal.Decimal
	SupplierID   *string
	ExpiryDate   *time.Time
	Actor        string
}

// CreateIngredient da de alta el ingrediente con saldo 0 y, en la misma transacción,
// registra el saldo inicial como entrada para que el libro lo reproduzca desde cero.
// El nombre es único sin distinguir mayúsculas.
func (r *StockRegister) CreateIngredient(ctx context.Context, in CreateIngredientInput) (*entity.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Unit) == "" ||
		in.MinimumStock.IsNegative() || in.UnitCost.IsNegative() || in.OpeningStock.IsNegative() {
		return nil, domain.ErrValidation
	}
	opening := inv.Quantize(in.OpeningStock)
	now := r.now()
	ing := &entity.Ingredient{
		ID:           uuid.New().String(),
		Name:         name,
		Unit:         strings.TrimSpace(in.Unit),
		CurrentStock: decimal.Zero,
		MinimumStock: inv.Quantize(in.MinimumStock),
		UnitCost:     inv.QuantizeCost(in.UnitCost),
		SupplierID:   in.SupplierID,
		ExpiryDate:   in.ExpiryDate,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := r.txRunner.Run(ctx, func(movRepo repository.StockMovementRepository, ingredientRepo repository.IngredientRepository) error {
		existing, err := ingredientRepo.FindByName(ctx, name)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrDuplicate
		}
		if err := ingredientRepo.Create(ctx, ing); err != nil {
			return err
		}
		if !opening.IsPositive() {
			return nil
		}
		change, err := r.AddInTx(ctx, movRepo, ingredientRepo, AddInput{
			IngredientID: ing.ID,
			Quantity:     opening,
			UnitCost:     ing.UnitCost,
			Kind:         entity.MovementKindIn,
			Reference:    OpeningReference,
			Notes:        "Saldo inicial",
			Actor:        in.Actor,
		})
		if err != nil {
			return err
		}
		ing.CurrentStock = change.NewStock
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Str("ingredient_id", ing.ID).
		Str("ingredient", ing.Name).
		Str("opening_stock", opening.String()).
		Msg("ingrediente creado")
	return ing, nil
}

func (r *StockRegister) manualReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, r.now().UTC().Format("20060102150405"))
}
