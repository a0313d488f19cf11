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

// Códigos de advertencia de una recepción.
const (
	ReceiptWarningUnknownLine   = "unknown_line"
	ReceiptWarningInvalidLine   = "invalid_quantity"
	ReceiptWarningShortAdjust   = "insufficient_stock_for_correction"
	ReceiptWarningMissingIngred = "ingredient_not_found"
)

// ProcurementReconciler aplica las recepciones de órdenes de compra al stock.
type ProcurementReconciler struct {
	txRunner       TxRunner
	register       *StockRegister
	poRepo         repository.PurchaseOrderRepository
	ingredientRepo repository.IngredientRepository
	settings       Settings
	metrics        Metrics
	log            zerolog.Logger
	now            func() time.Time
}

// NewProcurementReconciler construye el conciliador de compras.
func NewProcurementReconciler(
	txRunner TxRunner,
	register *StockRegister,
	poRepo repository.PurchaseOrderRepository,
	ingredientRepo repository.IngredientRepository,
	settings Settings,
	metrics Metrics,
	log zerolog.Logger,
) *ProcurementReconciler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ProcurementReconciler{
		txRunner:       txRunner,
		register:       register,
		poRepo:         poRepo,
		ingredientRepo: ingredientRepo,
		settings:       settings.withDefaults(),
		metrics:        metrics,
		log:            log.With().Str("component", "procurement").Logger(),
		now:            time.Now,
	}
}

// LineReceipt cantidad recibida acumulada de una línea.
type LineReceipt struct {
	LineID           string
	ReceivedQuantity decimal.Decimal
}

// ReceiveInput lote de recepciones de una orden.
type ReceiveInput struct {
	PONumber string
	Lines    []LineReceipt
	Actor    string
}

// LineResult efecto aplicado sobre una línea.
type LineResult struct {
	LineID           string                `json:"line_id"`
	IngredientID     string                `json:"ingredient_id"`
	PreviousReceived decimal.Decimal       `json:"previous_received" swaggertype:"string"`
	Received         decimal.Decimal       `json:"received" swaggertype:"string"`
	Delta            decimal.Decimal       `json:"delta" swaggertype:"string"`
	Movement         *entity.StockMovement `json:"-"`
}

// ReceiptWarning línea omitida o aplicada parcialmente.
type ReceiptWarning struct {
	LineID  string `json:"line_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReceiptOutcome resultado agregado de la recepción.
type ReceiptOutcome struct {
	PONumber string           `json:"po_number"`
	Status   string           `json:"status"`
	Lines    []LineResult     `json:"lines"`
	Warnings []ReceiptWarning `json:"warnings"`
}

// Receive fija la cantidad recibida de cada línea (último valor, no acumulativo) y lleva al
// stock solo la diferencia con lo ya recibido, con referencia "PO #<número>".
// Las líneas desconocidas o inválidas se omiten con advertencia sin afectar al resto.
func (p *ProcurementReconciler) Receive(ctx context.Context, in ReceiveInput) (*ReceiptOutcome, error) {
	in.PONumber = strings.TrimSpace(in.PONumber)
	if in.PONumber == "" || len(in.Lines) == 0 {
		return nil, domain.ErrValidation
	}
	var out *ReceiptOutcome
	err := withRetry(ctx, p.settings, p.metrics, func(ctx context.Context) error {
		out = &ReceiptOutcome{PONumber: in.PONumber}
		return p.txRunner.RunProcurement(ctx, func(
			movRepo repository.StockMovementRepository,
			ingredientRepo repository.IngredientRepository,
			poRepo repository.PurchaseOrderRepository,
		) error {
			po, err := poRepo.GetByNumberForUpdate(ctx, in.PONumber)
			if err != nil {
				return err
			}
			if po == nil {
				return domain.ErrNotFound
			}
			if !po.CanReceive() {
				return fmt.Errorf("orden %s en estado %s: %w", po.PONumber, po.Status, domain.ErrValidation)
			}
			reference := "PO #" + po.PONumber
			for _, lr := range in.Lines {
				if err := p.applyLine(ctx, movRepo, ingredientRepo, poRepo, po, lr, reference, in.Actor, out); err != nil {
					return err
				}
			}
			status := po.Status
			var delivered *time.Time
			switch {
			case po.IsFullyReceived():
				status = entity.POStatusReceived
				now := p.now()
				delivered = &now
			case po.HasReceipts():
				status = entity.POStatusPartiallyReceived
			}
			if status != po.Status {
				if err := poRepo.UpdateStatus(ctx, po.ID, status, delivered); err != nil {
					return err
				}
			}
			out.Status = status
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	p.metrics.ReceiptApplied(len(out.Lines))
	p.log.Info().
		Str("po", out.PONumber).
		Str("status", out.Status).
		Int("lines", len(out.Lines)).
		Int("warnings", len(out.Warnings)).
		Msg("recepción de orden de compra aplicada")
	return out, nil
}

func (p *ProcurementReconciler) applyLine(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	poRepo repository.PurchaseOrderRepository,
	po *entity.PurchaseOrder,
	lr LineReceipt,
	reference, actor string,
	out *ReceiptOutcome,
) error {
	lr.ReceivedQuantity = inv.Quantize(lr.ReceivedQuantity)
	item := po.Item(lr.LineID)
	if item == nil {
		p.log.Warn().Str("po", po.PONumber).Str("line_id", lr.LineID).Msg("línea desconocida, se omite")
		out.Warnings = append(out.Warnings, ReceiptWarning{LineID: lr.LineID, Code: ReceiptWarningUnknownLine, Message: "la línea no pertenece a la orden"})
		return nil
	}
	if lr.ReceivedQuantity.IsNegative() || lr.ReceivedQuantity.GreaterThan(item.OrderedQuantity) {
		out.Warnings = append(out.Warnings, ReceiptWarning{
			LineID:  lr.LineID,
			Code:    ReceiptWarningInvalidLine,
			Message: fmt.Sprintf("cantidad recibida %s fuera de [0, %s]", lr.ReceivedQuantity, item.OrderedQuantity),
		})
		return nil
	}
	delta := lr.ReceivedQuantity.Sub(item.ReceivedQuantity)
	if delta.IsZero() {
		return nil
	}

	res := LineResult{
		LineID:           item.ID,
		IngredientID:     item.IngredientID,
		PreviousReceived: item.ReceivedQuantity,
		Received:         lr.ReceivedQuantity,
		Delta:            delta,
	}
	var change *StockChange
	var err error
	if delta.IsPositive() {
		change, err = p.register.AddInTx(ctx, movRepo, ingredientRepo, AddInput{
			IngredientID: item.IngredientID,
			Quantity:     delta,
			UnitCost:     item.UnitCost,
			Kind:         entity.MovementKindIn,
			Reference:    reference,
			Notes:        "Recepción de orden de compra",
			Actor:        actor,
		})
	} else {
		// Corrección a la baja de una recepción anterior.
		change, err = p.register.DeductInTx(ctx, movRepo, ingredientRepo, DeductInput{
			IngredientID: item.IngredientID,
			Quantity:     delta.Neg(),
			Kind:         entity.MovementKindAdjustment,
			Reference:    reference,
			Notes:        "Corrección de recepción de orden de compra",
			Actor:        actor,
		})
	}
	if err == domain.ErrIngredientNotFound {
		out.Warnings = append(out.Warnings, ReceiptWarning{LineID: item.ID, Code: ReceiptWarningMissingIngred, Message: err.Error()})
		return nil
	}
	if err != nil {
		return err
	}
	if change.Shortfall.IsPositive() {
		out.Warnings = append(out.Warnings, ReceiptWarning{
			LineID:  item.ID,
			Code:    ReceiptWarningShortAdjust,
			Message: fmt.Sprintf("solo se pudo corregir %s de %s", change.Applied, change.Requested),
		})
	}
	if err := poRepo.UpdateReceivedQuantity(ctx, item.ID, lr.ReceivedQuantity); err != nil {
		return err
	}
	item.ReceivedQuantity = lr.ReceivedQuantity
	res.Movement = change.Movement
	out.Lines = append(out.Lines, res)
	return nil
}

// CreatePurchaseOrderInput nueva orden en borrador.
type CreatePurchaseOrderInput struct {
	SupplierID       string
	ExpectedDelivery *time.Time
	Notes            string
	Actor            string
	Items            []PurchaseOrderItemInput
}

// PurchaseOrderItemInput línea pedida al proveedor.
type PurchaseOrderItemInput struct {
	IngredientID string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
}

// CreatePurchaseOrder crea la orden en borrador con número PO<aaaammdd><nnnn>.
func (p *ProcurementReconciler) CreatePurchaseOrder(ctx context.Context, in CreatePurchaseOrderInput) (*entity.PurchaseOrder, error) {
	if in.SupplierID == "" || len(in.Items) == 0 {
		return nil, domain.ErrValidation
	}
	now := p.now()
	po := &entity.PurchaseOrder{
		ID:               uuid.New().String(),
		SupplierID:       in.SupplierID,
		Status:           entity.POStatusDraft,
		OrderDate:        now,
		ExpectedDelivery: in.ExpectedDelivery,
		Notes:            in.Notes,
		CreatedBy:        in.Actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, it := range in.Items {
		it.Quantity = inv.Quantize(it.Quantity)
		it.UnitCost = inv.QuantizeCost(it.UnitCost)
		if it.IngredientID == "" || !it.Quantity.GreaterThan(decimal.Zero) || it.UnitCost.IsNegative() {
			return nil, domain.ErrValidation
		}
		ing, err := p.ingredientRepo.GetByID(ctx, it.IngredientID)
		if err != nil {
			return nil, err
		}
		if ing == nil {
			return nil, domain.ErrIngredientNotFound
		}
		po.Items = append(po.Items, entity.PurchaseOrderItem{
			ID:               uuid.New().String(),
			PurchaseOrderID:  po.ID,
			IngredientID:     it.IngredientID,
			OrderedQuantity:  it.Quantity,
			ReceivedQuantity: decimal.Zero,
			UnitCost:         it.UnitCost,
		})
	}
	count, err := p.poRepo.CountCreatedOn(ctx, now)
	if err != nil {
		return nil, err
	}
	po.PONumber = fmt.Sprintf("PO%s%04d", now.Format("20060102"), count+1)
	if err := p.poRepo.Create(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// Transition cambia el estado de la orden respetando la tabla de transiciones.
func (p *ProcurementReconciler) Transition(ctx context.Context, poNumber, status string) (*entity.PurchaseOrder, error) {
	if !entity.IsValidPOStatus(status) {
		return nil, domain.ErrValidation
	}
	po, err := p.poRepo.GetByNumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, domain.ErrNotFound
	}
	if !po.CanTransitionTo(status) {
		return nil, fmt.Errorf("%s -> %s: %w", po.Status, status, domain.ErrValidation)
	}
	// "received" solo con todas las líneas completas.
	if status == entity.POStatusReceived && !po.IsFullyReceived() {
		return nil, fmt.Errorf("orden %s con líneas pendientes: %w", po.PONumber, domain.ErrValidation)
	}
	var delivered *time.Time
	if status == entity.POStatusReceived {
		now := p.now()
		delivered = &now
	}
	if err := p.poRepo.UpdateStatus(ctx, po.ID, status, delivered); err != nil {
		return nil, err
	}
	po.Status = status
	if delivered != nil {
		po.DeliveryDate = delivered
	}
	return po, nil
}

// PendingOrders órdenes que aún esperan mercancía.
func (p *ProcurementReconciler) PendingOrders(ctx context.Context) ([]*entity.PurchaseOrder, error) {
	return p.poRepo.ListByStatus(ctx,
		entity.POStatusDraft, entity.POStatusSent, entity.POStatusConfirmed, entity.POStatusPartiallyReceived)
}
