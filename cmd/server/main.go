package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/application/accounts"
	"github.com/sellerhub/backend/internal/application/reconcile"
	"github.com/sellerhub/backend/internal/application/records"
	"github.com/sellerhub/backend/internal/infrastructure/cache"
	"github.com/sellerhub/backend/internal/infrastructure/config"
	"github.com/sellerhub/backend/internal/infrastructure/event"
	"github.com/sellerhub/backend/internal/infrastructure/lock"
	"github.com/sellerhub/backend/internal/infrastructure/logger"
	"github.com/sellerhub/backend/internal/infrastructure/persistence"
	"github.com/sellerhub/backend/internal/interfaces/http/handler"
	"github.com/sellerhub/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting sellerhub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	// Repositories
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	listingRepo := persistence.NewGormListingRepository(db.DB)
	historyRepo := persistence.NewGormHistoryRepository(db.DB)
	jobRepo := persistence.NewGormImportJobRepository(db.DB)

	// Change notifications and cache invalidation
	bus := event.NewInMemoryChangeBus(log)
	summaryCache := cache.NewRedisRecordCache(redisClient, 5*time.Minute)
	bus.Subscribe(cache.NewSummaryInvalidator(summaryCache, log))

	// Per-account import serialization
	locker := lock.NewRedisAccountLocker(redisClient)

	// Application services
	accountService := accounts.NewService(accountRepo)
	reconcileService := reconcile.NewService(jobRepo, orderRepo, listingRepo, locker, bus, cfg.Import, log)
	recordService := records.NewService(orderRepo, listingRepo, historyRepo, summaryCache, bus, log)

	engine := router.Setup(cfg, log, router.Handlers{
		System:  handler.NewSystemHandler(db),
		Account: handler.NewAccountHandler(accountService),
		Import:  handler.NewImportHandler(reconcileService, accountService),
		Record:  handler.NewRecordHandler(recordService),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
