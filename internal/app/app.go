package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/NgTrQuang/booking-vehicle/config"
	"github.com/NgTrQuang/booking-vehicle/internal/adapter/http/server"
	repo "github.com/NgTrQuang/booking-vehicle/internal/adapter/postgres"
	brokeradapter "github.com/NgTrQuang/booking-vehicle/internal/adapter/rabbit"
	"github.com/NgTrQuang/booking-vehicle/internal/adapter/redisgeo"
	wsadapter "github.com/NgTrQuang/booking-vehicle/internal/adapter/ws"
	"github.com/NgTrQuang/booking-vehicle/internal/service/auth"
	"github.com/NgTrQuang/booking-vehicle/internal/service/dispatch"
	"github.com/NgTrQuang/booking-vehicle/internal/service/driver"
	"github.com/NgTrQuang/booking-vehicle/internal/service/trip"
	"github.com/NgTrQuang/booking-vehicle/pkg/logger"
	wrap "github.com/NgTrQuang/booking-vehicle/pkg/logger/wrapper"
	"github.com/NgTrQuang/booking-vehicle/pkg/postgres"
	"github.com/NgTrQuang/booking-vehicle/pkg/rabbit"
	"github.com/NgTrQuang/booking-vehicle/pkg/trm"
)

// App wires every adapter and service together and owns their lifecycle.
type App struct {
	cfg *config.Config
	log logger.Logger

	db     *postgres.PostgreDB
	redis  *redis.Client
	rabbit *rabbit.RabbitMQ
	router *wsadapter.SessionRouter
	api    *server.API
}

func NewApplication(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	ctx = wrap.WithAction(ctx, "app_init")

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		db.Pool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	rabbitClient, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		db.Pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	broker, err := brokeradapter.NewTripBroker(ctx, rabbitClient, log)
	if err != nil {
		db.Pool.Close()
		_ = redisClient.Close()
		_ = rabbitClient.Close(ctx)
		return nil, fmt.Errorf("failed to init trip broker: %w", err)
	}

	txManager := trm.New(db.Pool)

	tripRepo := repo.NewTripRepo(db.Pool)
	driverRepo := repo.NewDriverRepo(db.Pool)
	eventRepo := repo.NewTripEventRepo(db.Pool)
	geo := redisgeo.New(redisClient, cfg.Redis.GeoKey)

	router := wsadapter.NewSessionRouter(log)

	engine := dispatch.NewEngine(
		geo, driverRepo, tripRepo, router, eventRepo, broker, txManager, log,
		dispatch.WithOfferTimeout(cfg.Dispatch.OfferTimeout),
	)
	tripService := trip.NewService(tripRepo, driverRepo, engine, router, geo, eventRepo, broker, txManager, log)
	driverService := driver.NewService(driverRepo, geo, tripRepo, router, txManager, log)
	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)

	sessionHandler := wsadapter.NewHandler(router, verifier, tripService, driverService, engine, log)
	api := server.New(cfg, sessionHandler, tripService, verifier, log)

	// Cascade state does not survive a restart. Any trip still REQUESTED
	// belongs to a dead process and cannot resolve, so close it out now.
	swept, err := tripRepo.SweepRequested(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep stale trips: %w", err)
	}
	if len(swept) > 0 {
		log.Warn(ctx, "cancelled stale requested trips from previous run", "count", len(swept))
	}

	return &App{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  redisClient,
		rabbit: rabbitClient,
		router: router,
		api:    api,
	}, nil
}

// Run starts the HTTP server and blocks until the context is done, a
// shutdown signal arrives or the server fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	a.api.Run(ctx, errCh)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.log.Info(ctx, "received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		a.log.Error(ctx, "server failure", err)
		a.shutdown(ctx)
		return err
	case <-ctx.Done():
		a.log.Info(ctx, "context cancelled")
	}

	a.shutdown(ctx)
	return nil
}

func (a *App) shutdown(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "app_shutdown")
	a.log.Info(ctx, "shutting down...")

	if err := a.api.Stop(ctx); err != nil {
		a.log.Error(ctx, "failed to stop http server", err)
	}

	a.router.Close()

	if err := a.rabbit.Close(ctx); err != nil {
		a.log.Error(ctx, "failed to close rabbitmq connection", err)
	}
	if err := a.redis.Close(); err != nil {
		a.log.Error(ctx, "failed to close redis client", err)
	}
	a.db.Pool.Close()

	a.log.Info(ctx, "shutdown complete")
}
