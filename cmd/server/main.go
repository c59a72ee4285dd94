// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custody/internal/config"
	"custody/internal/domain/ledger"
	"custody/internal/handlers"
	"custody/internal/logger"
	"custody/internal/metrics"
	"custody/internal/repositories"
	"custody/internal/repositories/cache"
	"custody/internal/routes"
	ledgerservice "custody/internal/services/ledger"
	"custody/internal/services/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const version = "1.0.0"

func main() {
	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthCheckFunc{}
	stats := map[string]handlers.StatsFunc{}

	// Redis backs the balance cache and the event stream
	var (
		publishers   ledger.Publishers
		balanceCache ledgerservice.BalanceCache
	)
	if cfg.RedisEnabled {
		client := cache.NewRedisClient(cfg.Redis)
		cacheService := cache.NewCacheService(client, cfg.BalanceCacheTTL)
		defer func() {
			if err := cacheService.Close(); err != nil {
				log.Warn("failed to close redis connection", "error", err)
			}
		}()
		if err := cacheService.HealthCheck(ctx); err != nil {
			return err
		}

		bc := cache.NewBalanceCache(cacheService)
		balanceCache = bc
		publishers = append(publishers, bc, cache.NewEventStream(client, cfg.EventStream))
		checks["redis"] = cacheService.HealthCheck
		stats["redis_pool"] = func(ctx context.Context) interface{} { return cacheService.GetStats(ctx) }
		log.Info("redis connected", "stream", cfg.EventStream, "balance_ttl", cfg.BalanceCacheTTL)
	}

	store, closeStore, err := repositories.OpenStore(cfg, publishers, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()
	checks["store"] = func(ctx context.Context) error {
		_, err := store.Load(ctx)
		return err
	}

	st, err := openLedger(ctx, cfg, store)
	if err != nil {
		return err
	}
	log.Info("ledger ready",
		"driver", cfg.StoreDriver,
		"name", st.Name,
		"owner", st.Owner,
		"withdraw_cap", st.WithdrawCap,
		"bank_cap", st.BankCap,
		"custodied", st.Custodied,
	)

	transferer, err := newTransferer(cfg, log)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector("custody")
	collector.RecordCustodialTotal(uint64(st.Custodied))
	svc := ledgerservice.NewService(store, transfer.NewGateway(transferer, log), balanceCache, collector, log)

	app := fiber.New(fiber.Config{
		AppName:               "custody " + version,
		DisableStartupMessage: cfg.IsProduction(),
		ErrorHandler:          routes.ErrorHandler(log),
	})

	app.Use(recover.New())

	// CORS middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT",
	}))

	// Middleware
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/ledger/withdraw", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("WITHDRAW_RATE_LIMIT", 30),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	// Routes
	routes.SetupRoutes(app, routes.Dependencies{
		Ledger:    svc,
		JWTSecret: cfg.JWTSecret,
		Health:    handlers.NewHealthHandler(version, checks, stats),
		Metrics:   collector.Handler(),
		Log:       log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// openLedger loads the stored ledger or, on first start, constructs it from
// the LEDGER_* settings.
func openLedger(ctx context.Context, cfg config.Config, store ledger.Store) (ledger.State, error) {
	st, err := ledgerservice.Open(ctx, store)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ledger.ErrNotInitialized) {
		return ledger.State{}, err
	}
	return ledgerservice.Initialize(ctx, store, ledgerConfig(cfg))
}

func ledgerConfig(cfg config.Config) ledger.Config {
	return ledger.Config{
		Name:        cfg.LedgerName,
		Owner:       ledger.Address(cfg.LedgerOwner),
		WithdrawCap: ledger.Amount(cfg.WithdrawCap),
		BankCap:     ledger.Amount(cfg.BankCap),
		MinDeposit:  ledger.Amount(cfg.MinDeposit),
	}
}

func newTransferer(cfg config.Config, log *logger.Logger) (transfer.Transferer, error) {
	switch cfg.PayoutDriver {
	case "local":
		return transfer.NewRegistry(), nil
	case "stripe":
		if cfg.StripeKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required for the stripe payout driver")
		}
		return transfer.NewStripeTransferer(cfg.StripeKey, cfg.StripeCurrency, nil, log), nil
	default:
		return nil, fmt.Errorf("unsupported payout driver %q", cfg.PayoutDriver)
	}
}
