package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/application/inventory/inventorytest"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/metrics"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/report"
	apphttp "github.com/jhoicas/bakery-stock/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/bakery-stock/pkg/jwt"
)

type apiFixture struct {
	app   *fiber.App
	store *inventorytest.Store
}

// newAPI monta el router completo sobre el store en memoria.
func newAPI(t *testing.T, opts ...func(*apphttp.RouterDeps)) *apiFixture {
	t.Helper()
	store := inventorytest.NewStore()
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg)
	log := zerolog.Nop()
	settings := inventory.Settings{
		SystemActor:     "system",
		TxTimeout:       5 * time.Second,
		RetryAttempts:   3,
		RetryBaseDelay:  time.Millisecond,
		HistoryPageSize: 50,
	}
	ledger := inventory.NewLedger(store.Movements(), store.Ingredients(), settings)
	register := inventory.NewStockRegister(store, store.Ingredients(), ledger, settings, m, log)
	resolver := inventory.NewRecipeResolver(store.Recipes(), store.Ingredients(), log)

	deps := apphttp.RouterDeps{
		ServiceName:  "bakery-stock-test",
		Ledger:       ledger,
		Register:     register,
		Resolver:     resolver,
		Engine:       inventory.NewConsumptionEngine(store, resolver, register, store.Consumption(), nil, settings, m, log),
		Procurement:  inventory.NewProcurementReconciler(store, register, store.PurchaseOrders(), store.Ingredients(), settings, m, log),
		Availability: inventory.NewAvailabilityChecker(store.Recipes(), resolver),
		Reorder:      inventory.NewReorderUseCase(store.Ingredients()),
		Exporter:     report.NewExporter(),
		Gatherer:     reg,
		JWTSecret:    testJWTSecret,
		JWTIssuer:    testIssuer,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	app := fiber.New()
	apphttp.Router(app, deps)
	return &apiFixture{app: app, store: store}
}

func (f *apiFixture) do(t *testing.T, method, path, role string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeMap(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestAPI_HealthYMetrics(t *testing.T) {
	f := newAPI(t)

	resp, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeMap(t, body)["status"])

	resp, body = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "bakery_consumption_orders_processed_total")
}

func TestAPI_RutasProtegidas(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.do(t, http.MethodGet, "/api/ingredients/low-stock", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_OrderEventDescuentaUnaSolaVez(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("flour", "Flour", "kg", "10", "2", "1")
	f.store.SeedRecipe("r-bread", "Bread", "bread", map[string]string{"flour": "0.5"})

	event := map[string]interface{}{
		"order_number":    "ORD-100",
		"previous_status": "pending",
		"new_status":      "confirmed",
		"line_items":      []map[string]interface{}{{"sellable_item_id": "bread", "quantity": 4}},
	}
	resp, body := f.do(t, http.MethodPost, "/api/consumption/order-events", pkgjwt.RoleService, event)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeMap(t, body)
	assert.Equal(t, true, out["processed"])
	assert.True(t, f.store.Stock("flour").Equal(dec("8")))

	resp, body = f.do(t, http.MethodPost, "/api/consumption/order-events", pkgjwt.RoleService, event)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeMap(t, body)["already_processed"])
	assert.True(t, f.store.Stock("flour").Equal(dec("8")))

	resp, body = f.do(t, http.MethodGet, "/api/consumption/orders/ORD-100", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeMap(t, body)["movement_count"])

	resp, _ = f.do(t, http.MethodGet, "/api/consumption/orders/ORD-404", pkgjwt.RoleBaker, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_OrderEventRequiereRolDeServicio(t *testing.T) {
	f := newAPI(t)
	resp, _ := f.do(t, http.MethodPost, "/api/consumption/order-events", pkgjwt.RoleBaker, map[string]string{
		"order_number": "ORD-1", "new_status": "confirmed",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_OrderEventInvalido(t *testing.T) {
	f := newAPI(t)
	resp, body := f.do(t, http.MethodPost, "/api/consumption/order-events", pkgjwt.RoleService, map[string]string{
		"new_status": "confirmed",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeMap(t, body)
	assert.Equal(t, "VALIDATION", out["code"])
	assert.Contains(t, out["fields"], "OrderStatusEventRequest.order_number")
}

func TestAPI_DescuentoManualRecortado(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("flour", "Flour", "kg", "10", "2", "1")

	resp, body := f.do(t, http.MethodPost, "/api/ingredients/flour/deduct", pkgjwt.RoleBaker, map[string]interface{}{
		"amount": "12", "reason": "pedido especial",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeMap(t, body)
	assert.Equal(t, "10", out["applied"])
	assert.Equal(t, "2", out["shortfall"])
	assert.Equal(t, "0", out["new_stock"])
	assert.True(t, strings.HasPrefix(out["reference"].(string), "MANUAL-"))

	movs := f.store.MovementsOf("flour")
	require.Len(t, movs, 2)
	assert.Equal(t, testUserID, movs[1].CreatedBy)
}

func TestAPI_DescuentoManualErrores(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("flour", "Flour", "kg", "10", "2", "1")

	resp, body := f.do(t, http.MethodPost, "/api/ingredients/flour/deduct", pkgjwt.RoleBaker, map[string]interface{}{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeMap(t, body)["code"])

	resp, body = f.do(t, http.MethodPost, "/api/ingredients/nope/deduct", pkgjwt.RoleBaker, map[string]interface{}{"amount": "1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "INGREDIENT_NOT_FOUND", decodeMap(t, body)["code"])

	f.store.SetActive("flour", false)
	resp, body = f.do(t, http.MethodPost, "/api/ingredients/flour/waste", pkgjwt.RoleBaker, map[string]interface{}{"amount": "1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INACTIVE_INGREDIENT", decodeMap(t, body)["code"])

	resp, _ = f.do(t, http.MethodPost, "/api/ingredients/flour/deduct", pkgjwt.RolePurchasing, map[string]interface{}{"amount": "1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ConteoFisicoYVerificacion(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("sugar", "Sugar", "kg", "5", "1", "2")

	resp, body := f.do(t, http.MethodPost, "/api/ingredients/sugar/stocktake", pkgjwt.RoleAdmin, map[string]interface{}{"counted": "3.5"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "3.5", decodeMap(t, body)["new_stock"])

	resp, body = f.do(t, http.MethodGet, "/api/ingredients/sugar/verify", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeMap(t, body)
	assert.Equal(t, true, out["consistent"])
	assert.Equal(t, float64(2), out["movements"])
}

func TestAPI_MovimientosJSONYExportes(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("eggs", "Eggs", "unit", "30", "12", "0.2")
	resp, _ := f.do(t, http.MethodPost, "/api/ingredients/eggs/waste", pkgjwt.RoleBaker, map[string]interface{}{"amount": "6", "reason": "rotos"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/api/ingredients/eggs/movements", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeMap(t, body)
	assert.Equal(t, float64(2), out["total"])
	movs := out["movements"].([]interface{})
	assert.Equal(t, "waste", movs[1].(map[string]interface{})["kind"])

	resp, body = f.do(t, http.MethodGet, "/api/ingredients/eggs/movements?format=xlsx", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
	assert.NotEmpty(t, body)

	resp, body = f.do(t, http.MethodGet, "/api/ingredients/eggs/movements?format=pdf", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentTypePDF, resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	resp, _ = f.do(t, http.MethodGet, "/api/ingredients/eggs/movements?format=csv", pkgjwt.RoleBaker, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/ingredients/eggs/movements?from=ayer", pkgjwt.RoleBaker, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/ingredients/ghost/movements", pkgjwt.RoleBaker, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_RecetaYDisponibilidad(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("flour", "Flour", "kg", "1", "1", "1")
	f.store.SeedIngredient("cocoa", "Cocoa", "kg", "0.1", "0.5", "8")

	resp, body := f.do(t, http.MethodPost, "/api/recipes", pkgjwt.RoleBaker, map[string]interface{}{
		"name":             "Chocolate Cake",
		"sellable_item_id": "choco-cake",
		"ingredients": []map[string]interface{}{
			{"name": "flour", "quantity": "0.2"},
			{"name": "COCOA", "quantity": "0.05"},
			{"name": "vanilla", "quantity": "0.01"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	created := decodeMap(t, body)
	assert.Equal(t, float64(2), created["lines"])
	assert.Equal(t, []interface{}{"vanilla"}, created["unresolved"])

	path := "/api/recipes/" + created["id"].(string) + "/availability"
	resp, body = f.do(t, http.MethodPost, path, pkgjwt.RoleBaker, map[string]interface{}{"servings": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeMap(t, body)
	assert.Equal(t, false, out["available"])
	shortages := out["shortages"].([]interface{})
	require.Len(t, shortages, 1)
	assert.Equal(t, "cocoa", shortages[0].(map[string]interface{})["ingredient_id"])
	assert.Equal(t, "0.1", shortages[0].(map[string]interface{})["shortfall"])

	resp, _ = f.do(t, http.MethodPost, path, pkgjwt.RoleBaker, map[string]interface{}{"servings": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/recipes/none/availability", pkgjwt.RoleBaker, map[string]interface{}{"servings": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RECIPE_NOT_FOUND", decodeMap(t, body)["code"])
}

func TestAPI_OrdenDeCompraCicloCompleto(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("butter", "Butter", "kg", "0", "4", "5")

	resp, body := f.do(t, http.MethodPost, "/api/purchase-orders", pkgjwt.RolePurchasing, map[string]interface{}{
		"supplier_id": "sup-1",
		"items":       []map[string]interface{}{{"ingredient_id": "butter", "quantity": "10", "unit_cost": "6"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	po := decodeMap(t, body)
	number := po["po_number"].(string)
	assert.True(t, strings.HasPrefix(number, "PO"))
	assert.Equal(t, "draft", po["status"])
	lineID := po["items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	// borrador: no se puede recibir
	receive := map[string]interface{}{"received_items": []map[string]interface{}{{"item_id": lineID, "received_quantity": "4"}}}
	resp, _ = f.do(t, http.MethodPost, "/api/purchase-orders/"+number+"/receive", pkgjwt.RolePurchasing, receive)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/purchase-orders/"+number+"/status", pkgjwt.RolePurchasing, map[string]string{"status": "sent"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = f.do(t, http.MethodPost, "/api/purchase-orders/"+number+"/receive", pkgjwt.RolePurchasing, receive)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "partially_received", decodeMap(t, body)["status"])
	assert.True(t, f.store.Stock("butter").Equal(dec("4")))

	resp, body = f.do(t, http.MethodGet, "/api/purchase-orders/pending", pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeMap(t, body)["total"])

	resp, _ = f.do(t, http.MethodPost, "/api/purchase-orders/"+number+"/status", pkgjwt.RolePurchasing, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/purchase-orders/PO000/status", pkgjwt.RolePurchasing, map[string]string{"status": "sent"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/api/purchase-orders/pending", pkgjwt.RoleBaker, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ListaDeReposicion(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("flour", "Flour", "kg", "2", "10", "1")
	f.store.SeedIngredient("salt", "Salt", "kg", "9", "1", "1")

	resp, body := f.do(t, http.MethodGet, "/api/ingredients/low-stock", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeMap(t, body)
	assert.Equal(t, float64(1), out["total"])
	s := out["suggestions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "flour", s["ingredient_id"])
	assert.Equal(t, "13", s["suggested_order_qty"])
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAPI_ProximosAVencer(t *testing.T) {
	f := newAPI(t)
	f.store.SeedIngredient("milk", "Milk", "l", "4", "1", "1.2")
	f.store.SeedIngredient("cocoa", "Cocoa", "kg", "2", "1", "8")
	f.store.SeedIngredient("salt", "Salt", "kg", "9", "1", "1")
	f.store.SetExpiry("milk", time.Now().AddDate(0, 0, 3))
	f.store.SetExpiry("cocoa", time.Now().AddDate(0, 0, 60))

	resp, body := f.do(t, http.MethodGet, "/api/ingredients/expiring-soon", pkgjwt.RoleBaker, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeMap(t, body)
	assert.Equal(t, float64(30), out["days"])
	assert.Equal(t, float64(1), out["total"])
	item := out["ingredients"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "milk", item["ingredient_id"])
	assert.Equal(t, float64(3), item["days_left"])
	assert.Equal(t, "4.8", item["stock_value"])

	resp, body = f.do(t, http.MethodGet, "/api/ingredients/expiring-soon?days=90", pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decodeMap(t, body)["total"])

	resp, _ = f.do(t, http.MethodGet, "/api/ingredients/expiring-soon?days=0", pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AltaDeIngredienteConSaldoInicial(t *testing.T) {
	f := newAPI(t)
	body := map[string]interface{}{
		"name":          "Butter",
		"unit":          "kg",
		"minimum_stock": "2",
		"unit_cost":     "8.5",
		"opening_stock": "12.5",
	}

	resp, _ := f.do(t, http.MethodPost, "/api/ingredients", pkgjwt.RoleBaker, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, data := f.do(t, http.MethodPost, "/api/ingredients", pkgjwt.RolePurchasing, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	out := decodeMap(t, data)
	id := out["id"].(string)
	assert.Equal(t, "12.5", out["current_stock"])

	resp, data = f.do(t, http.MethodGet, "/api/ingredients/"+id+"/verify", pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeMap(t, data)
	assert.Equal(t, true, v["consistent"])
	assert.Equal(t, float64(1), v["movements"])

	resp, _ = f.do(t, http.MethodPost, "/api/ingredients", pkgjwt.RoleAdmin, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body["unit"] = "bucket"
	body["name"] = "Lard"
	resp, data = f.do(t, http.MethodPost, "/api/ingredients", pkgjwt.RoleAdmin, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "oneof", decodeMap(t, data)["fields"].(map[string]interface{})["CreateIngredientRequest.unit"])
}
