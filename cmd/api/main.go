package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/simgate/sim-gateway/internal/api/http"
	"github.com/simgate/sim-gateway/internal/api/http/handlers"
	"github.com/simgate/sim-gateway/internal/auth"
	"github.com/simgate/sim-gateway/internal/config"
	"github.com/simgate/sim-gateway/internal/events"
	"github.com/simgate/sim-gateway/internal/observability"
	"github.com/simgate/sim-gateway/internal/persistence"
	"github.com/simgate/sim-gateway/internal/registry"
	"github.com/simgate/sim-gateway/internal/repository"
	"github.com/simgate/sim-gateway/internal/scheduler"
	"github.com/simgate/sim-gateway/internal/service"
	"github.com/simgate/sim-gateway/internal/session"
	"github.com/simgate/sim-gateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gateway stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		slotRepo repository.SlotRepository
		txRepo   repository.TransactionRepository
	)
	if pg.Enabled() {
		slotRepo = repository.NewSlotRepository(pg.PoolHandle())
		txRepo = repository.NewTransactionRepository(pg.PoolHandle())
	}

	seed, err := loadSeed(ctx, cfg, slotRepo)
	if err != nil {
		return err
	}
	reg, err := registry.New(seed.Slots)
	if err != nil {
		return err
	}
	logger.Info("slot registry seeded",
		zap.String("source", cfg.Slots.Source),
		zap.Int("slots", len(seed.Slots)),
		zap.Int("operators", len(seed.Operators)))

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	outcomeDeps := service.OutcomeDependencies{
		Dispatcher:   dispatcher,
		Logger:       logger,
		Config:       cfg.Events,
		Transactions: txRepo,
	}
	if redis != nil {
		outcomeDeps.Publisher = redis.Client
	}
	if cfg.Slots.Source == config.SlotSourcePostgres {
		outcomeDeps.Slots = slotRepo
	}
	worker.StartOutcomeWorker(service.NewOutcomeService(outcomeDeps))

	driver := session.NewDriver(session.Config{
		CancelTimeout:   cfg.Modem.CancelTimeout(),
		RequestTimeout:  cfg.Modem.SendTimeout(),
		PollInterval:    cfg.Modem.PollInterval(),
		MaxPollAttempts: cfg.Modem.MaxPollAttempts,
		MaxPollErrors:   cfg.Modem.MaxPollErrors,
	}, session.HTTPClientFactory(&http.Client{Timeout: cfg.Modem.HTTPTimeout()}), logger.Named("session"))

	gateway := service.NewGatewayService(service.GatewayDependencies{
		Registry:   reg,
		Scheduler:  scheduler.New(reg),
		Executor:   driver,
		Operators:  seed.Operators,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger.Named("gateway"),
		Region:     cfg.Slots.DefaultRegion,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, 0)
	if cfg.Auth.Disabled {
		logger.Warn("authentication disabled; every caller is admin")
	}
	validate := validator.New()

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, requestTimeout(cfg, driver))
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, gateway, pg, redis),
		Slots:          handlers.NewSlotsHandler(gateway, validate),
		Ussd:           handlers.NewUssdHandler(gateway, validate),
		Transactions:   handlers.NewTransactionsHandler(service.NewTransactionService(txRepo)),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens, cfg.Auth.Disabled),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(driver.Config().Deadline())
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadSeed(ctx context.Context, cfg *config.Config, slotRepo repository.SlotRepository) (*config.Seed, error) {
	if cfg.Slots.Source == config.SlotSourcePostgres {
		if slotRepo == nil {
			return nil, errors.New("SLOTS_SOURCE=postgres requires POSTGRES_DSN")
		}
		return repository.LoadSeed(ctx, slotRepo, cfg.Slots.DefaultRegion)
	}
	return config.LoadSlotFile(cfg.Slots.File, cfg.Slots.DefaultRegion)
}

// requestTimeout keeps the HTTP deadline above the session deadline so a
// session is never cut short by the transport.
func requestTimeout(cfg *config.Config, driver *session.Driver) time.Duration {
	timeout := cfg.App.RequestTimeout()
	if minimum := driver.Config().Deadline(); timeout < minimum {
		return minimum
	}
	return timeout
}
