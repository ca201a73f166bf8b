package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ecommerce/api/internal/cache"
	"ecommerce/api/internal/config"
	"ecommerce/api/internal/database"
	"ecommerce/api/internal/denylist"
	"ecommerce/api/internal/handlers"
	"ecommerce/api/internal/jobs"
	"ecommerce/api/internal/log"
	"ecommerce/api/internal/mail"
	"ecommerce/api/internal/metrics"
	"ecommerce/api/internal/repository"
	"ecommerce/api/internal/repository/memory"
	mongostore "ecommerce/api/internal/repository/mongo"
	"ecommerce/api/internal/server"
	"ecommerce/api/internal/service"
)

type userStore interface {
	service.UserStore
	handlers.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open credential store")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		// Denylist calls fail open until redis comes back.
		logger.Warn().Err(err).Msg("redis unavailable at startup")
	}

	m := metrics.New()
	deny := denylist.New(
		cache.NewTTLStore(redisClient, cfg.Redis.KeyPrefix),
		denylist.Timeouts{
			Read:   cfg.Security.Denylist.ReadTimeout,
			Write:  cfg.Security.Denylist.WriteTimeout,
			Delete: cfg.Security.Denylist.DeleteTimeout,
		},
		logger,
		denylist.WithRecorder(m),
	)
	mailer := mail.NewMailer(cfg.Mail, logger)

	tokens := service.NewTokenIssuer(store, cfg.Security, time.Now)
	authService := service.NewAuthService(store, tokens, deny, mailer, cfg, logger, service.WithRejectionRecorder(m))
	userService := service.NewUserService(store, tokens, logger, time.Now)
	if err := userService.BootstrapAdmin(ctx, cfg.Security.BootstrapAdminEmail); err != nil {
		logger.Error().Err(err).Msg("bootstrap admin failed")
	}

	if err := handlers.RegisterValidators(); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validators")
	}
	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, userService, store, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, m)

	scheduler := jobs.NewScheduler(userService, cfg.Jobs.PurgeSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, closeStore, redisClient)
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (userStore, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.Migrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repository.NewUserRepository(pool), pool.Close, nil

	case config.DriverMongo:
		client, err := database.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		store, err := mongostore.New(ctx, client, cfg.Mongo.Database)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error().Err(err).Msg("mongo disconnect error")
			}
		}
		return store, closeFn, nil

	case config.DriverMemory:
		logger.Warn().Msg("using in-memory credential store; data is lost on restart")
		return memory.NewUserStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, closeStore func(), redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop(shutdownCtx)
	closeStore()

	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
