package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	_ "github.com/jhoicas/bakery-stock/docs"
	"github.com/jhoicas/bakery-stock/internal/application/inventory"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/metrics"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/bakery-stock/internal/infrastructure/redis"
	"github.com/jhoicas/bakery-stock/internal/infrastructure/report"
	httpRouter "github.com/jhoicas/bakery-stock/internal/interfaces/http"
	"github.com/jhoicas/bakery-stock/pkg/config"
	"github.com/jhoicas/bakery-stock/pkg/logger"
)

// @title                       Bakery Stock API
// @version                     1.0
// @description                 Libro de movimientos de insumos de panadería y descuento automático por pedido.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
// @description                 Bearer <token JWT>
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.App.MigrationsEnabled {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	// Métricas: registro propio para no exponer colectores de librerías ajenas
	var gatherer prometheus.Gatherer
	var appMetrics inventory.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		appMetrics = metrics.NewPrometheus(reg)
		gatherer = reg
	}

	// Redis es opcional: sin él no hay lock por pedido ni suscriptor; la marca en BD mantiene la idempotencia.
	rdb, err := infraredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis no disponible, se continúa sin lock ni suscriptor")
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	settings := inventory.Settings{
		SystemActor:     cfg.Inventory.SystemActor,
		TxTimeout:       cfg.Inventory.TxTimeout,
		RetryAttempts:   uint64(cfg.Inventory.RetryAttempts),
		HistoryPageSize: cfg.Inventory.HistoryPageSize,
	}
	zl := log.Zerolog()

	ingredientRepo := postgres.NewIngredientRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	recipeRepo := postgres.NewRecipeRepository(pool)
	poRepo := postgres.NewPurchaseOrderRepository(pool)
	consumptionRepo := postgres.NewConsumptionRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	var locker inventory.OrderLocker
	if rdb != nil {
		locker = infraredis.NewOrderLocker(rdb, cfg.Redis.LockTTL, zl)
	}

	ledger := inventory.NewLedger(movementRepo, ingredientRepo, settings)
	register := inventory.NewStockRegister(txRunner, ingredientRepo, ledger, settings, appMetrics, zl)
	resolver := inventory.NewRecipeResolver(recipeRepo, ingredientRepo, zl)
	engine := inventory.NewConsumptionEngine(txRunner, resolver, register, consumptionRepo, locker, settings, appMetrics, zl)
	procurement := inventory.NewProcurementReconciler(txRunner, register, poRepo, ingredientRepo, settings, appMetrics, zl)
	availability := inventory.NewAvailabilityChecker(recipeRepo, resolver)
	reorder := inventory.NewReorderUseCase(ingredientRepo)

	if rdb != nil && cfg.Redis.OrderEventsChannel != "" {
		sub := infraredis.NewOrderEventSubscriber(rdb, cfg.Redis.OrderEventsChannel, engine, zl)
		go func() {
			if err := sub.Run(ctx); err != nil {
				log.Error().Err(err).Msg("suscriptor de pedidos finalizado")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// El middleware de swagger falla al arrancar si el archivo no existe.
	swaggerFile := cfg.HTTP.SwaggerFile
	if swaggerFile != "" {
		if _, err := os.Stat(swaggerFile); err != nil {
			log.Warn().Err(err).Str("file", swaggerFile).Msg("documentación OpenAPI no disponible, /docs desactivado")
			swaggerFile = ""
		}
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ServiceName:  cfg.App.Name,
		Ledger:       ledger,
		Register:     register,
		Resolver:     resolver,
		Engine:       engine,
		Procurement:  procurement,
		Availability: availability,
		Reorder:      reorder,
		Exporter:     report.NewExporter(),
		Gatherer:     gatherer,
		SwaggerFile:  swaggerFile,
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
