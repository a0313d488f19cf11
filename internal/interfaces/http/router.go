package http

import (
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/report"
	"github.com/jhoicas/bakery-stock/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ServiceName  string
	Ledger       *inventory.Ledger
	Register     *inventory.StockRegister
	Resolver     *inventory.RecipeResolver
	Engine       *inventory.ConsumptionEngine
	Procurement  *inventory.ProcurementReconciler
	Availability *inventory.AvailabilityChecker
	Reorder      *inventory.ReorderUseCase
	Exporter     *report.Exporter
	Gatherer     prometheus.Gatherer // nil = sin /metrics
	SwaggerFile  string              // vacío = sin /docs
	JWTSecret    string
	JWTIssuer    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Swagger UI en local: http://localhost:<port>/docs
	if deps.SwaggerFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: deps.SwaggerFile,
			Path:     "docs",
			Title:    deps.ServiceName + " API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	exporter := deps.Exporter
	if exporter == nil {
		exporter = report.NewExporter()
	}

	// Todas las rutas de negocio requieren Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBaker, jwt.RolePurchasing, jwt.RoleService)

	// Consumo automático (flujo de pedidos)
	consumption := api.Group("/consumption")
	consumptionHandler := NewConsumptionHandler(deps.Engine)
	consumption.Post("/order-events", RequireRole(jwt.RoleAdmin, jwt.RoleService), consumptionHandler.OrderEvent)
	consumption.Get("/orders/:number", anyRole, consumptionHandler.GetOrder)

	// Órdenes de compra
	purchases := api.Group("/purchase-orders", RequireRole(jwt.RoleAdmin, jwt.RolePurchasing))
	procurementHandler := NewProcurementHandler(deps.Procurement)
	purchases.Get("/pending", procurementHandler.Pending)
	purchases.Post("/", procurementHandler.Create)
	purchases.Post("/:number/status", procurementHandler.Transition)
	purchases.Post("/:number/receive", procurementHandler.Receive)

	// Recetas
	recipes := api.Group("/recipes")
	recipeHandler := NewRecipeHandler(deps.Resolver, deps.Availability)
	recipes.Post("/", RequireRole(jwt.RoleAdmin, jwt.RoleBaker), recipeHandler.Create)
	recipes.Post("/:id/availability", anyRole, recipeHandler.Availability)

	// Ingredientes: ajustes manuales y libro de movimientos
	ingredients := api.Group("/ingredients")
	ingredientHandler := NewIngredientHandler(deps.Register, deps.Ledger, deps.Reorder, exporter)
	stockWriters := RequireRole(jwt.RoleAdmin, jwt.RoleBaker)
	ingredients.Post("/", RequireRole(jwt.RoleAdmin, jwt.RolePurchasing), ingredientHandler.Create)
	ingredients.Get("/low-stock", anyRole, ingredientHandler.LowStock)
	ingredients.Get("/expiring-soon", anyRole, ingredientHandler.ExpiringSoon)
	ingredients.Post("/:id/deduct", stockWriters, ingredientHandler.Deduct)
	ingredients.Post("/:id/waste", stockWriters, ingredientHandler.Waste)
	ingredients.Post("/:id/stocktake", RequireRole(jwt.RoleAdmin), ingredientHandler.Stocktake)
	ingredients.Get("/:id/movements", anyRole, ingredientHandler.Movements)
	ingredients.Get("/:id/verify", anyRole, ingredientHandler.Verify)
}
