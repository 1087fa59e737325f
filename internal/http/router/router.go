package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/kosthorys-api/internal/config"
	"github.com/straye-as/kosthorys-api/internal/database"
	"github.com/straye-as/kosthorys-api/internal/http/handler"
	"github.com/straye-as/kosthorys-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/kosthorys-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	rateLimiter      *middleware.RateLimiter
	auditMiddleware  *middleware.AuditMiddleware
	budgetHandler    *handler.BudgetHandler
	kekvHandler      *handler.KekvHandler
	contractHandler  *handler.ContractHandler
	actHandler       *handler.ActHandler
	usageHandler     *handler.UsageHandler
	paymentHandler   *handler.PaymentHandler
	vehicleHandler   *handler.VehicleHandler
	inventoryHandler *handler.InventoryHandler
	auditHandler     *handler.AuditHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	budgetHandler *handler.BudgetHandler,
	kekvHandler *handler.KekvHandler,
	contractHandler *handler.ContractHandler,
	actHandler *handler.ActHandler,
	usageHandler *handler.UsageHandler,
	paymentHandler *handler.PaymentHandler,
	vehicleHandler *handler.VehicleHandler,
	inventoryHandler *handler.InventoryHandler,
	auditHandler *handler.AuditHandler,
) *Router {
	return &Router{
		cfg:              cfg,
		logger:           logger,
		db:               db,
		rateLimiter:      rateLimiter,
		auditMiddleware:  auditMiddleware,
		budgetHandler:    budgetHandler,
		kekvHandler:      kekvHandler,
		contractHandler:  contractHandler,
		actHandler:       actHandler,
		usageHandler:     usageHandler,
		paymentHandler:   paymentHandler,
		vehicleHandler:   vehicleHandler,
		inventoryHandler: inventoryHandler,
		auditHandler:     auditHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Liveness probe
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Readiness probe with pool stats
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]interface{}{}
		status := http.StatusOK

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = map[string]interface{}{"status": "healthy"}
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": overall,
			"checks": checks,
		})
	})

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.auditMiddleware.Audit)

		r.Get("/audit", rt.auditHandler.List)

		// Budgets
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", rt.budgetHandler.List)
			r.Post("/", rt.budgetHandler.Create)
			r.Get("/{id}", rt.budgetHandler.GetByID)
			r.Put("/{id}", rt.budgetHandler.Update)
			r.Delete("/{id}", rt.budgetHandler.Delete)
			r.Get("/{id}/statistics", rt.budgetHandler.Statistics)
			r.Get("/{id}/report", rt.budgetHandler.Report)
			r.Post("/{id}/kekv", rt.budgetHandler.AddAllocation)
		})

		// KEKV dictionary
		r.Route("/kekv", func(r chi.Router) {
			r.Get("/", rt.kekvHandler.List)
			r.Post("/", rt.kekvHandler.Create)
		})

		// Contracts
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", rt.contractHandler.List)
			r.Post("/", rt.contractHandler.Create)
			r.Get("/direct-limit", rt.contractHandler.DirectLimit)
			r.Get("/{id}", rt.contractHandler.GetByID)
			r.Put("/{id}", rt.contractHandler.Update)
			r.Delete("/{id}", rt.contractHandler.Delete)

			// Sub-resources
			r.Get("/{id}/specifications", rt.contractHandler.ListSpecifications)
			r.Post("/{id}/specifications", rt.contractHandler.AddSpecifications)
			r.Get("/{id}/acts", rt.actHandler.ListByContract)
			r.Post("/{id}/acts", rt.actHandler.Create)
			r.Get("/{id}/payments", rt.paymentHandler.ListByContract)
			r.Post("/{id}/payments", rt.paymentHandler.Create)
		})

		// Specification lines and usage
		r.Route("/specifications", func(r chi.Router) {
			r.Delete("/usage/{usageId}", rt.usageHandler.Delete)
			r.Delete("/{id}", rt.contractHandler.DeleteSpecification)
			r.Get("/{id}/usage", rt.usageHandler.List)
			r.Post("/{id}/usage", rt.usageHandler.Post)
		})

		// Acts
		r.Route("/acts", func(r chi.Router) {
			r.Get("/{id}", rt.actHandler.GetByID)
			r.Patch("/{id}", rt.actHandler.UpdateStatus)
			r.Delete("/{id}", rt.actHandler.Delete)
		})

		r.Delete("/payments/{id}", rt.paymentHandler.Delete)

		// Vehicles
		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", rt.vehicleHandler.List)
			r.Post("/", rt.vehicleHandler.Create)
			r.Get("/{id}", rt.vehicleHandler.GetByID)
			r.Put("/{id}", rt.vehicleHandler.Update)
			r.Delete("/{id}", rt.vehicleHandler.Delete)
		})

		r.Get("/inventory", rt.inventoryHandler.List)
	})

	return r
}
