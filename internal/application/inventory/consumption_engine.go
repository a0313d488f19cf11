package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// WarningInvalidLine línea de pedido con cantidad no positiva o sin producto.
const WarningInvalidLine = "invalid_line"

// ConsumptionEngine descuenta los insumos de un pedido la primera vez que su estado
// entra en {confirmed, preparing}. La idempotencia la da una marca persistida por pedido
// que se escribe en la misma transacción que los movimientos.
type ConsumptionEngine struct {
	txRunner        TxRunner
	resolver        *RecipeResolver
	register        *StockRegister
	consumptionRepo repository.ConsumptionRepository
	locker          OrderLocker
	settings        Settings
	metrics         Metrics
	log             zerolog.Logger
	now             func() time.Time
}

// NewConsumptionEngine construye el motor. locker puede ser nil.
func NewConsumptionEngine(
	txRunner TxRunner,
	resolver *RecipeResolver,
	register *StockRegister,
	consumptionRepo repository.ConsumptionRepository,
	locker OrderLocker,
	settings Settings,
	metrics Metrics,
	log zerolog.Logger,
) *ConsumptionEngine {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ConsumptionEngine{
		txRunner:        txRunner,
		resolver:        resolver,
		register:        register,
		consumptionRepo: consumptionRepo,
		locker:          locker,
		settings:        settings.withDefaults(),
		metrics:         metrics,
		log:             log.With().Str("component", "consumption_engine").Logger(),
		now:             time.Now,
	}
}

// ConsumptionOutcome resultado del procesamiento de un cambio de estado.
type ConsumptionOutcome struct {
	OrderNumber      string                      `json:"order_number"`
	Status           string                      `json:"status"`
	Skipped          bool                        `json:"skipped"`           // estado no dispara consumo
	AlreadyProcessed bool                        `json:"already_processed"` // marca existente, sin efectos
	Processed        bool                        `json:"processed"`
	Movements        []*entity.StockMovement     `json:"-"`
	Warnings         []entity.ConsumptionWarning `json:"warnings"`
}

// HandleOrderStatusChange reacciona a la notificación de cambio de estado de un pedido.
// Los faltantes y las recetas o ingredientes ausentes quedan como advertencias;
// el pedido se marca procesado igualmente.
func (e *ConsumptionEngine) HandleOrderStatusChange(ctx context.Context, ev entity.OrderStatusEvent) (*ConsumptionOutcome, error) {
	ev.OrderNumber = strings.TrimSpace(ev.OrderNumber)
	if ev.OrderNumber == "" || ev.NewStatus == "" {
		return nil, domain.ErrValidation
	}
	out := &ConsumptionOutcome{OrderNumber: ev.OrderNumber, Status: ev.NewStatus}
	if !entity.IsQualifyingOrderStatus(ev.NewStatus) {
		out.Skipped = true
		return out, nil
	}

	if e.locker != nil {
		release, err := e.locker.Lock(ctx, ev.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("lock pedido %s: %w", ev.OrderNumber, err)
		}
		defer release()
	}

	// Explosión de recetas fuera de la transacción (solo lectura).
	var reqs []Requirement
	var baseWarnings []entity.ConsumptionWarning
	for _, line := range ev.Lines {
		if line.SellableItemID == "" || !line.Quantity.GreaterThan(decimal.Zero) {
			baseWarnings = append(baseWarnings, entity.ConsumptionWarning{
				Code:           WarningInvalidLine,
				SellableItemID: line.SellableItemID,
				Requested:      line.Quantity,
				Message:        domain.ErrValidation.Error(),
			})
			continue
		}
		lineReqs, lineWarnings, err := e.resolver.Explode(ctx, line.SellableItemID, line.Quantity)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, lineReqs...)
		baseWarnings = append(baseWarnings, lineWarnings...)
	}
	// Orden de bloqueo determinista entre pedidos concurrentes.
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].IngredientID < reqs[j].IngredientID })

	reference := "ORDER-" + ev.OrderNumber
	err := withRetry(ctx, e.settings, e.metrics, func(ctx context.Context) error {
		out.Movements = nil
		out.Warnings = append([]entity.ConsumptionWarning(nil), baseWarnings...)
		out.AlreadyProcessed = false
		return e.txRunner.RunConsumption(ctx, func(
			movRepo repository.StockMovementRepository,
			ingredientRepo repository.IngredientRepository,
			consumptionRepo repository.ConsumptionRepository,
		) error {
			marked, err := consumptionRepo.TryMark(ctx, ev.OrderNumber, ev.NewStatus)
			if err != nil {
				return err
			}
			if !marked {
				out.AlreadyProcessed = true
				return nil
			}
			for _, req := range reqs {
				change, err := e.register.DeductInTx(ctx, movRepo, ingredientRepo, DeductInput{
					IngredientID: req.IngredientID,
					Quantity:     req.Quantity,
					Kind:         entity.MovementKindOut,
					Reference:    reference,
					Notes:        fmt.Sprintf("Descuento automático pedido #%s - %s", ev.OrderNumber, req.SellableItemID),
					Actor:        e.settings.SystemActor,
				})
				if errors.Is(err, domain.ErrIngredientNotFound) {
					out.Warnings = append(out.Warnings, entity.ConsumptionWarning{
						Code:           entity.WarningIngredientNotFound,
						SellableItemID: req.SellableItemID,
						IngredientID:   req.IngredientID,
						IngredientName: req.IngredientName,
						Requested:      req.Quantity,
						Message:        err.Error(),
					})
					continue
				}
				if err != nil {
					return err
				}
				if change.Movement != nil {
					out.Movements = append(out.Movements, change.Movement)
				}
				if change.Inactive {
					out.Warnings = append(out.Warnings, entity.ConsumptionWarning{
						Code:           entity.WarningInactiveIngredient,
						SellableItemID: req.SellableItemID,
						IngredientID:   req.IngredientID,
						IngredientName: req.IngredientName,
						Requested:      change.Requested,
						Applied:        change.Applied,
						Message:        req.IngredientName + ": ingrediente inactivo, se descontó igualmente",
					})
				}
				if change.Shortfall.GreaterThan(decimal.Zero) {
					out.Warnings = append(out.Warnings, entity.ConsumptionWarning{
						Code:           entity.WarningInsufficientStock,
						SellableItemID: req.SellableItemID,
						IngredientID:   req.IngredientID,
						IngredientName: req.IngredientName,
						Requested:      change.Requested,
						Applied:        change.Applied,
						Shortfall:      change.Shortfall,
						Message: fmt.Sprintf("%s: %s: requerido %s %s, disponible %s",
							req.IngredientName, domain.ErrInsufficientStock, change.Requested, req.Unit, change.PreviousStock),
					})
				}
			}
			return consumptionRepo.SaveOutcome(ctx, &entity.ConsumptionRecord{
				OrderNumber:   ev.OrderNumber,
				TriggerStatus: ev.NewStatus,
				MovementCount: len(out.Movements),
				Warnings:      out.Warnings,
				ProcessedAt:   e.now(),
			})
		})
	})
	if err != nil {
		e.log.Error().Err(err).Str("order", ev.OrderNumber).Msg("consumo de insumos fallido, sin efectos")
		return nil, err
	}

	if out.AlreadyProcessed {
		e.metrics.DuplicateTrigger()
		out.Movements = nil
		out.Warnings = nil
		e.log.Info().Str("order", ev.OrderNumber).Str("status", ev.NewStatus).Msg("pedido ya procesado, se ignora")
		return out, nil
	}

	out.Processed = true
	e.metrics.OrderProcessed(len(out.Movements))
	for _, w := range out.Warnings {
		if w.Code == entity.WarningInsufficientStock {
			e.metrics.Shortage(w.IngredientID, w.Shortfall)
		}
	}
	e.log.Info().
		Str("order", ev.OrderNumber).
		Str("status", ev.NewStatus).
		Int("movements", len(out.Movements)).
		Int("warnings", len(out.Warnings)).
		Msg("insumos descontados")
	return out, nil
}

// ConsumptionStatus devuelve el registro persistido del pedido.
func (e *ConsumptionEngine) ConsumptionStatus(ctx context.Context, orderNumber string) (*entity.ConsumptionRecord, error) {
	rec, err := e.consumptionRepo.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}
