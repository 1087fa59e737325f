package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/kosthorys-api/docs"
	"github.com/straye-as/kosthorys-api/internal/cache"
	"github.com/straye-as/kosthorys-api/internal/config"
	"github.com/straye-as/kosthorys-api/internal/database"
	"github.com/straye-as/kosthorys-api/internal/http/handler"
	"github.com/straye-as/kosthorys-api/internal/http/middleware"
	"github.com/straye-as/kosthorys-api/internal/http/router"
	"github.com/straye-as/kosthorys-api/internal/jobs"
	"github.com/straye-as/kosthorys-api/internal/logger"
	"github.com/straye-as/kosthorys-api/internal/repository"
	"github.com/straye-as/kosthorys-api/internal/service"
	"github.com/straye-as/kosthorys-api/internal/storage"
	"go.uber.org/zap"
)

// @title Kosthorys API
// @version 1.0
// @description Budget, contract and maintenance accounting API: KEKV allocations, procurement
// @description contracts, completion acts, usage and payments.

// @contact.name API Support
// @contact.email support@straye.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// In development secrets come from the environment, elsewhere from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Database schema migrated")
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Redis is optional; statistics fall back to computing on every request
	statsCache := cache.New(ctx, &cfg.Redis, log)
	defer func() { _ = statsCache.Close() }()

	// Repositories
	budgetRepo := repository.NewBudgetRepository(db)
	kekvRepo := repository.NewKekvRepository(db)
	contractRepo := repository.NewContractRepository(db)
	specRepo := repository.NewSpecificationRepository(db)
	actRepo := repository.NewActRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, log)
	budgetService := service.NewBudgetService(db, budgetRepo, kekvRepo, statsCache, log)
	kekvService := service.NewKekvService(kekvRepo, log)
	contractService := service.NewContractService(db, service.ContractServiceDeps{
		ContractRepo:  contractRepo,
		SpecRepo:      specRepo,
		KekvRepo:      kekvRepo,
		VehicleRepo:   vehicleRepo,
		InventoryRepo: inventoryRepo,
		PaymentRepo:   paymentRepo,
		Numbers:       numberSequenceService,
		Cache:         statsCache,
	}, cfg.Accounting.Ceiling(), log)
	actService := service.NewActService(db, actRepo, contractRepo, specRepo, statsCache, log)
	usageService := service.NewUsageService(db, usageRepo, specRepo, contractRepo, statsCache, log)
	paymentService := service.NewPaymentService(db, paymentRepo, contractRepo, cfg.Accounting.Ceiling(), statsCache, log)
	vehicleService := service.NewVehicleService(vehicleRepo, log)
	inventoryService := service.NewInventoryService(inventoryRepo)
	statisticsService := service.NewStatisticsService(budgetRepo, contractRepo, paymentRepo, statsCache, log)
	reportService := service.NewReportService(statisticsService, contractRepo, paymentRepo, fileStorage, log)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)

	// Middleware
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		rateLimiter,
		auditMiddleware,
		handler.NewBudgetHandler(budgetService, statisticsService, reportService, log),
		handler.NewKekvHandler(kekvService, log),
		handler.NewContractHandler(contractService, log),
		handler.NewActHandler(actService, log),
		handler.NewUsageHandler(usageService, log),
		handler.NewPaymentHandler(paymentService, log),
		handler.NewVehicleHandler(vehicleService, log),
		handler.NewInventoryHandler(inventoryService, log),
		handler.NewAuditHandler(auditLogService, log),
	)

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if cfg.Accounting.Reconcile.Enabled {
		job := jobs.NewReconcileJob(db, cfg.Accounting.Reconcile.Repair, log)
		if err := scheduler.Add(cfg.Accounting.Reconcile.Cron, cfg.Accounting.Reconcile.TimeoutDuration(), job); err != nil {
			log.Error("Failed to register reconcile job", zap.Error(err))
		}
	}
	if cfg.Audit.RetentionDays > 0 {
		job := jobs.NewAuditCleanupJob(auditLogService, cfg.Audit.RetentionDays, log)
		if err := scheduler.Add(cfg.Audit.CleanupCron, 0, job); err != nil {
			log.Error("Failed to register audit cleanup job", zap.Error(err))
		}
	}
	scheduler.Start()
	log.Info("Scheduler started", zap.Strings("jobs", scheduler.JobNames()))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Wait for running jobs so a reconcile never stops half way
		<-scheduler.Stop().Done()
		log.Info("Scheduler stopped")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
