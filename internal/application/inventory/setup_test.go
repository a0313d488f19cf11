package inventory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/application/inventory/inventorytest"
)

type fakeMetrics struct {
	mu         sync.Mutex
	processed  int
	movements  int
	duplicates int
	shortages  map[string]decimal.Decimal
	receipts   int
	retries    int
}

func (m *fakeMetrics) OrderProcessed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	m.movements += n
}

func (m *fakeMetrics) DuplicateTrigger() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates++
}

func (m *fakeMetrics) Shortage(id string, q decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shortages == nil {
		m.shortages = make(map[string]decimal.Decimal)
	}
	m.shortages[id] = m.shortages[id].Add(q)
}

func (m *fakeMetrics) ReceiptApplied(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts++
}

func (m *fakeMetrics) ConcurrencyRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

type fixture struct {
	store        *inventorytest.Store
	metrics      *fakeMetrics
	ledger       *inventory.Ledger
	register     *inventory.StockRegister
	resolver     *inventory.RecipeResolver
	engine       *inventory.ConsumptionEngine
	procurement  *inventory.ProcurementReconciler
	availability *inventory.AvailabilityChecker
	reorder      *inventory.ReorderUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inventorytest.NewStore()
	metrics := &fakeMetrics{}
	log := zerolog.Nop()
	settings := inventory.Settings{
		SystemActor:     "system",
		TxTimeout:       5 * time.Second,
		RetryAttempts:   3,
		RetryBaseDelay:  time.Millisecond,
		HistoryPageSize: 2, // fuerza varias páginas en History
	}
	ledger := inventory.NewLedger(store.Movements(), store.Ingredients(), settings)
	register := inventory.NewStockRegister(store, store.Ingredients(), ledger, settings, metrics, log)
	resolver := inventory.NewRecipeResolver(store.Recipes(), store.Ingredients(), log)
	return &fixture{
		store:        store,
		metrics:      metrics,
		ledger:       ledger,
		register:     register,
		resolver:     resolver,
		engine:       inventory.NewConsumptionEngine(store, resolver, register, store.Consumption(), nil, settings, metrics, log),
		procurement:  inventory.NewProcurementReconciler(store, register, store.PurchaseOrders(), store.Ingredients(), settings, metrics, log),
		availability: inventory.NewAvailabilityChecker(store.Recipes(), resolver),
		reorder:      inventory.NewReorderUseCase(store.Ingredients()),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
