// Package inventorytest provee un almacén en memoria con transacciones, bloqueos de fila
// y rollback, que implementa todos los puertos de inventario para pruebas de casos de uso.
package inventorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/domain"
	"github.com/jhoicas/bakery-stock/internal/domain/entity"
	"github.com/jhoicas/bakery-stock/internal/domain/repository"
)

// OpeningReference referencia del movimiento de apertura de SeedIngredient.
const OpeningReference = inventory.OpeningReference

// Operaciones en las que se puede inyectar un fallo con FailNext.
const (
	OpUpdateStock     = "ingredient.UpdateStock"
	OpCreateMovement  = "movement.Create"
	OpTryMark         = "consumption.TryMark"
	OpSaveOutcome     = "consumption.SaveOutcome"
	OpUpdateReceived  = "purchase_order.UpdateReceivedQuantity"
	OpUpdatePOStatus  = "purchase_order.UpdateStatus"
	OpCreateRecipe    = "recipe.Create"
	OpCreatePurchase  = "purchase_order.Create"
	OpListMovements   = "movement.List"
	OpGetIngredientFU = "ingredient.GetForUpdate"
)

// Store almacén en memoria. Los repositorios obtenidos fuera de Run escriben en autocommit.
type Store struct {
	mu          sync.Mutex
	ingredients map[string]*entity.Ingredient
	movements   []*entity.StockMovement
	seq         map[string]int64
	recipes     map[string]*entity.Recipe
	orders      map[string]*entity.PurchaseOrder // por número
	consumption map[string]*entity.ConsumptionRecord
	locks       map[string]chan struct{}
	failures    map[string][]error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		ingredients: make(map[string]*entity.Ingredient),
		seq:         make(map[string]int64),
		recipes:     make(map[string]*entity.Recipe),
		orders:      make(map[string]*entity.PurchaseOrder),
		consumption: make(map[string]*entity.ConsumptionRecord),
		locks:       make(map[string]chan struct{}),
		failures:    make(map[string][]error),
	}
}

// FailNext hace que la próxima llamada a op devuelva err. Se pueden encolar varias.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

func (s *Store) injected(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.failures[op]
	if len(q) == 0 {
		return nil
	}
	s.failures[op] = q[1:]
	return q[0]
}

// ─── Transacciones ────────────────────────────────────────────────────────────

type tx struct {
	store *Store
	held  map[string]bool
	undo  []func()
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t == nil || t.held[key] {
		return nil
	}
	t.store.mu.Lock()
	ch, ok := t.store.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		t.store.locks[key] = ch
	}
	t.store.mu.Unlock()
	select {
	case ch <- struct{}{}:
		t.held[key] = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// record registra la operación inversa; se llama con store.mu tomado.
func (t *tx) record(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (t *tx) finish(commit bool) {
	t.store.mu.Lock()
	if !commit {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
	}
	t.undo = nil
	for key := range t.held {
		<-t.store.locks[key]
	}
	t.held = nil
	t.store.mu.Unlock()
}

func (s *Store) begin() *tx {
	return &tx{store: s, held: make(map[string]bool)}
}

func (s *Store) run(fn func(t *tx) error) error {
	t := s.begin()
	err := fn(t)
	t.finish(err == nil)
	return err
}

// Run implementa inventory.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
) error) error {
	return s.run(func(t *tx) error {
		return fn(&movementRepo{s: s, tx: t}, &ingredientRepo{s: s, tx: t})
	})
}

// RunConsumption implementa inventory.TxRunner.
func (s *Store) RunConsumption(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	consumptionRepo repository.ConsumptionRepository,
) error) error {
	return s.run(func(t *tx) error {
		return fn(&movementRepo{s: s, tx: t}, &ingredientRepo{s: s, tx: t}, &consumptionRepo{s: s, tx: t})
	})
}

// RunProcurement implementa inventory.TxRunner.
func (s *Store) RunProcurement(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	ingredientRepo repository.IngredientRepository,
	poRepo repository.PurchaseOrderRepository,
) error) error {
	return s.run(func(t *tx) error {
		return fn(&movementRepo{s: s, tx: t}, &ingredientRepo{s: s, tx: t}, &purchaseOrderRepo{s: s, tx: t})
	})
}

// Repositorios en autocommit, equivalentes a los construidos sobre el pool.
func (s *Store) Ingredients() repository.IngredientRepository       { return &ingredientRepo{s: s} }
func (s *Store) Movements() repository.StockMovementRepository      { return &movementRepo{s: s} }
func (s *Store) Recipes() repository.RecipeRepository               { return &recipeRepo{s: s} }
func (s *Store) PurchaseOrders() repository.PurchaseOrderRepository { return &purchaseOrderRepo{s: s} }
func (s *Store) Consumption() repository.ConsumptionRepository      { return &consumptionRepo{s: s} }

// ─── Ayudas de siembra y consulta ─────────────────────────────────────────────

// SeedIngredient inserta un ingrediente activo. Un saldo inicial > 0 queda registrado como
// movimiento de entrada "APERTURA" (Seq 1), así el libro reproduce el saldo desde cero.
// Con id vacío se genera uno.
func (s *Store) SeedIngredient(id, name, unit, stock, minimum, cost string) *entity.Ingredient {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	ing := &entity.Ingredient{
		ID:           id,
		Name:         name,
		Unit:         unit,
		CurrentStock: decimal.RequireFromString(stock),
		MinimumStock: decimal.RequireFromString(minimum),
		UnitCost:     decimal.RequireFromString(cost),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.mu.Lock()
	s.ingredients[id] = ing
	if ing.CurrentStock.IsPositive() {
		s.seq[id]++
		s.movements = append(s.movements, &entity.StockMovement{
			ID:            uuid.New().String(),
			Seq:           s.seq[id],
			IngredientID:  id,
			Kind:          entity.MovementKindIn,
			Quantity:      ing.CurrentStock,
			PreviousStock: decimal.Zero,
			NewStock:      ing.CurrentStock,
			UnitCost:      ing.UnitCost,
			TotalValue:    ing.TotalValue(),
			Reference:     OpeningReference,
			CreatedBy:     "seed",
			CreatedAt:     now,
		})
	}
	s.mu.Unlock()
	c := *ing
	return &c
}

// SetActive activa o desactiva un ingrediente.
func (s *Store) SetActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ing, ok := s.ingredients[id]; ok {
		ing.IsActive = active
	}
}

// SetExpiry fija la fecha de vencimiento del ingrediente.
func (s *Store) SetExpiry(id string, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ing, ok := s.ingredients[id]; ok {
		e := expiry
		ing.ExpiryDate = &e
	}
}

// RemoveIngredient borra el ingrediente (simula un borrado posterior a la receta).
func (s *Store) RemoveIngredient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ingredients, id)
}

// SeedRecipe guarda una receta con líneas (ingredientID, cantidad por porción).
func (s *Store) SeedRecipe(id, name, sellableItemID string, lines map[string]string) *entity.Recipe {
	if id == "" {
		id = uuid.New().String()
	}
	r := &entity.Recipe{ID: id, Name: name, SellableItemID: sellableItemID, Servings: 1, IsActive: true}
	ids := make([]string, 0, len(lines))
	for ingID := range lines {
		ids = append(ids, ingID)
	}
	sort.Strings(ids)
	for _, ingID := range ids {
		r.Lines = append(r.Lines, entity.RecipeLine{
			ID:           uuid.New().String(),
			IngredientID: ingID,
			Quantity:     decimal.RequireFromString(lines[ingID]),
		})
	}
	s.mu.Lock()
	s.recipes[id] = r
	s.mu.Unlock()
	return cloneRecipe(r)
}

// SeedPurchaseOrder guarda una orden tal cual.
func (s *Store) SeedPurchaseOrder(po *entity.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[po.PONumber] = clonePO(po)
}

// Stock saldo actual del ingrediente.
func (s *Store) Stock(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ing, ok := s.ingredients[id]; ok {
		return ing.CurrentStock
	}
	return decimal.Zero
}

// Ingredient copia del ingrediente o nil.
func (s *Store) Ingredient(id string) *entity.Ingredient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ing, ok := s.ingredients[id]; ok {
		c := *ing
		return &c
	}
	return nil
}

// MovementsOf movimientos confirmados del ingrediente en orden de Seq.
func (s *Store) MovementsOf(ingredientID string) []*entity.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range s.movements {
		if m.IngredientID == ingredientID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// MovementCount cantidad total de movimientos.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// PurchaseOrder copia de la orden o nil.
func (s *Store) PurchaseOrder(number string) *entity.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if po, ok := s.orders[number]; ok {
		return clonePO(po)
	}
	return nil
}

func clonePO(po *entity.PurchaseOrder) *entity.PurchaseOrder {
	c := *po
	c.Items = append([]entity.PurchaseOrderItem(nil), po.Items...)
	return &c
}

func cloneRecipe(r *entity.Recipe) *entity.Recipe {
	c := *r
	c.Lines = append([]entity.RecipeLine(nil), r.Lines...)
	return &c
}

// ─── IngredientRepository ─────────────────────────────────────────────────────

type ingredientRepo struct {
	s  *Store
	tx *tx
}

var _ repository.IngredientRepository = (*ingredientRepo)(nil)

func (r *ingredientRepo) Create(ctx context.Context, ing *entity.Ingredient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ing.ID == "" {
		ing.ID = uuid.New().String()
	}
	if _, ok := r.s.ingredients[ing.ID]; ok {
		return domain.ErrDuplicate
	}
	ing.CurrentStock = decimal.Zero
	c := *ing
	r.s.ingredients[ing.ID] = &c
	id := ing.ID
	r.tx.record(func() { delete(r.s.ingredients, id) })
	return nil
}

func (r *ingredientRepo) GetByID(ctx context.Context, id string) (*entity.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ing, ok := r.s.ingredients[id]
	if !ok {
		return nil, nil
	}
	c := *ing
	return &c, nil
}

func (r *ingredientRepo) GetForUpdate(ctx context.Context, id string) (*entity.Ingredient, error) {
	if err := r.s.injected(OpGetIngredientFU); err != nil {
		return nil, err
	}
	if err := r.tx.lock(ctx, "ingredient:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ingredientRepo) FindByName(ctx context.Context, name string) ([]*entity.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Ingredient
	for _, ing := range r.s.ingredients {
		if strings.EqualFold(ing.Name, strings.TrimSpace(name)) {
			c := *ing
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ingredientRepo) ListLowStock(ctx context.Context) ([]*entity.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Ingredient
	for _, ing := range r.s.ingredients {
		if ing.IsLowStock() {
			c := *ing
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ingredientRepo) ListExpiring(ctx context.Context, from, until time.Time) ([]*entity.Ingredient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Ingredient
	for _, ing := range r.s.ingredients {
		if ing.ExpiryDate == nil || ing.ExpiryDate.Before(from) || !ing.ExpiryDate.Before(until) {
			continue
		}
		c := *ing
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(*out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(*out[j].ExpiryDate)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *ingredientRepo) UpdateStock(ctx context.Context, id string, expected, newStock, unitCost decimal.Decimal) error {
	if err := r.s.injected(OpUpdateStock); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ing, ok := r.s.ingredients[id]
	if !ok {
		return domain.ErrIngredientNotFound
	}
	if !ing.CurrentStock.Equal(expected) {
		return domain.ErrConcurrencyConflict
	}
	prevStock, prevCost, prevUpdated := ing.CurrentStock, ing.UnitCost, ing.UpdatedAt
	ing.CurrentStock = newStock
	ing.UnitCost = unitCost
	ing.UpdatedAt = time.Now()
	r.tx.record(func() {
		ing.CurrentStock, ing.UnitCost, ing.UpdatedAt = prevStock, prevCost, prevUpdated
	})
	return nil
}

// ─── StockMovementRepository ──────────────────────────────────────────────────

type movementRepo struct {
	s  *Store
	tx *tx
}

var _ repository.StockMovementRepository = (*movementRepo)(nil)

func (r *movementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if err := r.s.injected(OpCreateMovement); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = uuid.New().String()
	r.s.seq[m.IngredientID]++
	m.Seq = r.s.seq[m.IngredientID]
	c := &entity.StockMovement{}
	*c = *m
	r.s.movements = append(r.s.movements, c)
	ingID := m.IngredientID
	r.tx.record(func() {
		for i, existing := range r.s.movements {
			if existing == c {
				r.s.movements = append(r.s.movements[:i], r.s.movements[i+1:]...)
				break
			}
		}
		r.s.seq[ingID]--
	})
	return nil
}

func (r *movementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	if err := r.s.injected(OpListMovements); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.StockMovement
	for _, m := range r.s.movements {
		if f.IngredientID != "" && m.IngredientID != f.IngredientID {
			continue
		}
		if m.Seq <= f.AfterSeq {
			continue
		}
		if f.From != nil && m.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && m.CreatedAt.After(*f.To) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *movementRepo) CountByReference(ctx context.Context, reference string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.movements {
		if m.Reference == reference {
			n++
		}
	}
	return n, nil
}

// ─── RecipeRepository ─────────────────────────────────────────────────────────

type recipeRepo struct {
	s *Store
}

var _ repository.RecipeRepository = (*recipeRepo)(nil)

func (r *recipeRepo) Create(ctx context.Context, recipe *entity.Recipe) error {
	if err := r.s.injected(OpCreateRecipe); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.recipes {
		if existing.IsActive && existing.SellableItemID == recipe.SellableItemID {
			return domain.ErrDuplicate
		}
	}
	r.s.recipes[recipe.ID] = cloneRecipe(recipe)
	return nil
}

func (r *recipeRepo) GetByID(ctx context.Context, id string) (*entity.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec, ok := r.s.recipes[id]; ok {
		return cloneRecipe(rec), nil
	}
	return nil, nil
}

func (r *recipeRepo) GetBySellableItem(ctx context.Context, sellableItemID string) (*entity.Recipe, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.recipes {
		if rec.IsActive && rec.SellableItemID == sellableItemID {
			return cloneRecipe(rec), nil
		}
	}
	return nil, nil
}

// ─── PurchaseOrderRepository ──────────────────────────────────────────────────

type purchaseOrderRepo struct {
	s  *Store
	tx *tx
}

var _ repository.PurchaseOrderRepository = (*purchaseOrderRepo)(nil)

func (r *purchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	if err := r.s.injected(OpCreatePurchase); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[po.PONumber]; ok {
		return domain.ErrDuplicate
	}
	r.s.orders[po.PONumber] = clonePO(po)
	number := po.PONumber
	r.tx.record(func() { delete(r.s.orders, number) })
	return nil
}

func (r *purchaseOrderRepo) GetByNumber(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if po, ok := r.s.orders[poNumber]; ok {
		return clonePO(po), nil
	}
	return nil, nil
}

func (r *purchaseOrderRepo) GetByNumberForUpdate(ctx context.Context, poNumber string) (*entity.PurchaseOrder, error) {
	if err := r.tx.lock(ctx, "po:"+poNumber); err != nil {
		return nil, err
	}
	return r.GetByNumber(ctx, poNumber)
}

func (r *purchaseOrderRepo) byID(id string) *entity.PurchaseOrder {
	for _, po := range r.s.orders {
		if po.ID == id {
			return po
		}
	}
	return nil
}

func (r *purchaseOrderRepo) UpdateStatus(ctx context.Context, id, status string, deliveryDate *time.Time) error {
	if err := r.s.injected(OpUpdatePOStatus); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	po := r.byID(id)
	if po == nil {
		return domain.ErrNotFound
	}
	prevStatus, prevDelivery := po.Status, po.DeliveryDate
	po.Status = status
	if deliveryDate != nil {
		d := *deliveryDate
		po.DeliveryDate = &d
	}
	r.tx.record(func() { po.Status, po.DeliveryDate = prevStatus, prevDelivery })
	return nil
}

func (r *purchaseOrderRepo) UpdateReceivedQuantity(ctx context.Context, itemID string, received decimal.Decimal) error {
	if err := r.s.injected(OpUpdateReceived); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, po := range r.s.orders {
		for i := range po.Items {
			if po.Items[i].ID != itemID {
				continue
			}
			item := &po.Items[i]
			prev := item.ReceivedQuantity
			item.ReceivedQuantity = received
			r.tx.record(func() { item.ReceivedQuantity = prev })
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *purchaseOrderRepo) ListByStatus(ctx context.Context, statuses ...string) ([]*entity.PurchaseOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*entity.PurchaseOrder
	for _, po := range r.s.orders {
		if want[po.Status] {
			out = append(out, clonePO(po))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PONumber < out[j].PONumber })
	return out, nil
}

func (r *purchaseOrderRepo) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	y, m, d := day.Date()
	n := 0
	for _, po := range r.s.orders {
		py, pm, pd := po.CreatedAt.Date()
		if py == y && pm == m && pd == d {
			n++
		}
	}
	return n, nil
}

// ─── ConsumptionRepository ────────────────────────────────────────────────────

type consumptionRepo struct {
	s  *Store
	tx *tx
}

var _ repository.ConsumptionRepository = (*consumptionRepo)(nil)

func (r *consumptionRepo) TryMark(ctx context.Context, orderNumber, triggerStatus string) (bool, error) {
	if err := r.s.injected(OpTryMark); err != nil {
		return false, err
	}
	// Un segundo TryMark concurrente espera a que termine la primera transacción.
	if err := r.tx.lock(ctx, "order:"+orderNumber); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.consumption[orderNumber]; ok {
		return false, nil
	}
	r.s.consumption[orderNumber] = &entity.ConsumptionRecord{
		OrderNumber:   orderNumber,
		TriggerStatus: triggerStatus,
		ProcessedAt:   time.Now(),
	}
	r.tx.record(func() { delete(r.s.consumption, orderNumber) })
	return true, nil
}

func (r *consumptionRepo) SaveOutcome(ctx context.Context, rec *entity.ConsumptionRecord) error {
	if err := r.s.injected(OpSaveOutcome); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.consumption[rec.OrderNumber]
	if !ok {
		return domain.ErrNotFound
	}
	prev := *existing
	c := *rec
	c.Warnings = append([]entity.ConsumptionWarning(nil), rec.Warnings...)
	*existing = c
	r.tx.record(func() { *existing = prev })
	return nil
}

func (r *consumptionRepo) Get(ctx context.Context, orderNumber string) (*entity.ConsumptionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec, ok := r.s.consumption[orderNumber]; ok {
		c := *rec
		return &c, nil
	}
	return nil, nil
}
