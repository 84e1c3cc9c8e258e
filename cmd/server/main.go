package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/analyst-scheduler/internal/app"
	"github.com/nekogravitycat/analyst-scheduler/internal/config"
	"github.com/nekogravitycat/analyst-scheduler/internal/db"
	"github.com/nekogravitycat/analyst-scheduler/internal/jobs"
	"github.com/nekogravitycat/analyst-scheduler/internal/logs"
	"github.com/nekogravitycat/analyst-scheduler/internal/metrics"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/cache"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logs.New(cfg)
	slog.SetDefault(logger)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			log.Fatalf("failed to migrate db: %v", err)
		}
	}

	// Redis is optional
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.NewRedisClient(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
	} else {
		logger.Info("redis not configured, rule cache and event publishing disabled")
	}

	containerCfg := app.Config{
		IsProduction:         cfg.IsProduction,
		ProdOrigins:          cfg.ProdOrigins,
		DBPool:               pool,
		JWTSecret:            cfg.JWTSecret,
		JWTTTL:               cfg.JWTAccessTokenTTL,
		Logger:               logger,
		RuleCacheTTL:         cfg.RuleCacheTTL,
		EventsChannel:        cfg.EventsChannel,
		VideoProviderURL:     cfg.VideoProviderURL,
		VideoProviderAPIKey:  cfg.VideoProviderAPIKey,
		VideoProviderTimeout: cfg.VideoProviderTimeout,
	}
	if rdb != nil {
		containerCfg.Redis = rdb
	}
	container := app.NewContainer(containerCfg)
	defer container.Notifier.Close()

	scheduler, err := jobs.NewScheduler(cfg.VideoRetrySchedule, container.BookingService, logger)
	if err != nil {
		log.Fatalf("failed to create job scheduler: %v", err)
	}
	scheduler.Start()

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		logger.Info("server running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	scheduler.Stop(shutdownCtx)

	logger.Info("server exited gracefully")
}
