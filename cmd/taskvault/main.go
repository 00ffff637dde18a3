package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/taskvault/taskvault/pkg/accounts"
	"github.com/taskvault/taskvault/pkg/api"
	"github.com/taskvault/taskvault/pkg/config"
	"github.com/taskvault/taskvault/pkg/middleware"
	"github.com/taskvault/taskvault/pkg/observability"
	"github.com/taskvault/taskvault/pkg/storage"
	"github.com/taskvault/taskvault/pkg/tasks"
	"github.com/taskvault/taskvault/pkg/token"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("port", cfg.Server.Port).Info("starting taskvault")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	issuer, err := token.NewIssuer([]byte(cfg.Auth.TokenSecret))
	if err != nil {
		logger.WithError(err).Error("failed to initialize token issuer")
		os.Exit(1)
	}

	var accountStore accounts.Store
	var taskStore tasks.Store
	var sqlDB *sql.DB
	if cfg.Storage.DatabaseURL != "" {
		sqlDB, err = storage.Open(cfg.Storage.DatabaseURL, cfg.Storage.MaxConns)
		if err != nil {
			logger.WithError(err).Error("failed to connect to database")
			os.Exit(1)
		}
		defer sqlDB.Close()

		if err := storage.RunMigrations(ctx, sqlDB, logger); err != nil {
			logger.WithError(err).Error("failed to run migrations")
			os.Exit(1)
		}

		accountStore = accounts.NewPostgresStore(sqlDB)
		taskStore = tasks.NewPostgresStore(sqlDB)
		logger.Info("connected to postgres")
	} else {
		accountStore = accounts.NewMemoryStore()
		taskStore = tasks.NewMemoryStore()
		logger.Warn("no database configured, using in-memory stores")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, continuing without it")
			redisClient = nil
		} else {
			logger.Info("connected to redis")
		}
	}

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	accountService := accounts.NewService(accountStore, issuer, cfg.Auth.TokenTTL)
	taskService := tasks.NewService(taskStore)

	limitConfig := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		WindowDuration:    cfg.RateLimit.WindowDuration,
	}
	var limiter middleware.Limiter
	memoryLimiter := middleware.NewRateLimiter(limitConfig)
	if redisClient != nil {
		limiter = middleware.NewDistributedRateLimiter(redisClient, limitConfig, logger)
	} else {
		limiter = memoryLimiter
	}

	server := api.NewServer(api.Options{
		Logger:          logger,
		AccountHandlers: accounts.NewHandlers(accountService, metrics),
		TaskHandlers:    tasks.NewHandlers(taskService, metrics),
		Auth:            middleware.NewAuthMiddleware(issuer, metrics),
		RateLimit:       middleware.NewRateLimitMiddleware(limiter),
		Metrics:         metrics,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(sqlDB, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				memoryLimiter.Cleanup()
				if metrics != nil && sqlDB != nil {
					stats := sqlDB.Stats()
					metrics.DBConnectionsActive.Set(float64(stats.InUse))
					metrics.DBConnectionsIdle.Set(float64(stats.Idle))
				}
			}
		}
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown failed")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
