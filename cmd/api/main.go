package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/peptide-ledger/internal/application/inventory"
	"github.com/jhoicas/peptide-ledger/internal/infrastructure/notify"
	infrapdf "github.com/jhoicas/peptide-ledger/internal/infrastructure/pdf"
	"github.com/jhoicas/peptide-ledger/internal/infrastructure/postgres"
	ledgerredis "github.com/jhoicas/peptide-ledger/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/peptide-ledger/internal/interfaces/http"
	"github.com/jhoicas/peptide-ledger/pkg/config"
	"github.com/jhoicas/peptide-ledger/pkg/logger"
)

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

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	lotRepo := postgres.NewLotRepository(pool)
	bottleRepo := postgres.NewBottleRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	vialRepo := postgres.NewClientInventoryRepository(pool)
	peptideRepo := postgres.NewPeptideRepository(pool)
	contactRepo := postgres.NewContactRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Comisiones: funciones de la BD; SMS solo si hay servicio configurado.
	var notifier inventory.Notifier
	if cfg.Notify.URL != "" {
		notifier = notify.NewClient(cfg.Notify.URL, cfg.Notify.Token, cfg.Notify.Timeout())
	}
	processor := inventory.NewSideEffectProcessor(postgres.NewCommissionRPC(pool), notifier, log.Component("side_effects"))

	// Sin Redis: señales al log, efectos en goroutine y stats sin cache.
	var (
		pub         inventory.InvalidationPublisher = inventory.LogPublisher{Log: log.Component("invalidation")}
		dispatcher  inventory.SideEffectDispatcher  = inventory.NewInlineDispatcher(processor, 30*time.Second)
		statsCache  inventory.BottleStatsCache
		workers     *ledgerredis.WorkerPool
		deadLetters func(ctx context.Context) (int64, error)
	)
	if cfg.Redis.Enabled() {
		rdb, err := ledgerredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()

		pub = ledgerredis.NewPublisher(rdb)
		dispatcher = ledgerredis.NewDispatcher(rdb)
		cache := ledgerredis.NewStatsCache(rdb, log.Component("stats_cache"))
		go func() {
			if err := cache.Listen(ctx); err != nil {
				log.Error().Err(err).Msg("suscripción a invalidaciones")
			}
		}()
		statsCache = cache
		deadLetters = func(ctx context.Context) (int64, error) { return ledgerredis.DLQLength(ctx, rdb) }
		workers = ledgerredis.NewWorkerPool(rdb, processor, 30*time.Second, log.Component("worker"))
		workers.Start(ctx, cfg.Redis.Workers)
		log.Info().Int("workers", cfg.Redis.Workers).Msg("cola de efectos secundarios en Redis")
	}

	bottlePool := inventory.NewBottlePool(txRunner, bottleRepo, statsCache, pub, log.Component("bottle_pool"))
	lotRegistry := inventory.NewLotRegistry(txRunner, lotRepo, peptideRepo, pub, log.Component("lot_registry"))
	ledger := inventory.NewMovementLedger(txRunner, bottlePool, movementRepo, peptideRepo, contactRepo, dispatcher, pub, log.Component("movement_ledger"))
	restock := inventory.NewRestockEngine(txRunner, dispatcher, pub, log.Component("restock"))
	tracker := inventory.NewClientInventoryTracker(vialRepo, peptideRepo, contactRepo, pub, log.Component("client_inventory"))
	reconciliation := inventory.NewReconciliation(lotRepo, bottleRepo, movementRepo, vialRepo, log.Component("reconciliation"))

	// PDF: comprobante de venta/regalo/baja
	receipts := infrapdf.NewReceiptGenerator(cfg.App.Name, "es")

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Lots:           lotRegistry,
		Bottles:        bottlePool,
		Ledger:         ledger,
		Restock:        restock,
		Vials:          tracker,
		Reconciliation: reconciliation,
		Receipts:       receipts,
		Ping:           pool.Ping,
		DeadLetters:    deadLetters,
		ServiceName:    cfg.App.Name,
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
		Log:            log.Component("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Los workers terminan el trabajo en curso antes de cerrar Redis y el pool.
	stop()
	if workers != nil {
		workers.Wait()
	}

	log.Info().Msg("aplicación detenida")
}
