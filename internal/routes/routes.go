// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"net/http"

	"custody/internal/handlers"
	"custody/internal/logger"
	"custody/internal/middleware"
	"custody/internal/models"
	ledgerservice "custody/internal/services/ledger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// Dependencies carries everything the routes need. Metrics may be nil.
type Dependencies struct {
	Ledger    ledgerservice.Service
	JWTSecret string
	Health    *handlers.HealthHandler
	Metrics   http.Handler
	Log       *logger.Logger
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	ledgerHandler := handlers.NewLedgerHandler(deps.Ledger, deps.Log)
	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret, deps.Log)

	if deps.Health != nil {
		app.Get("/health", deps.Health.HealthCheck)
	}
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")

	// Protected routes with auth middleware
	ledger := api.Group("/ledger", authMiddleware.Handler)
	setupLedgerRoutes(ledger, ledgerHandler)
}

func setupLedgerRoutes(router fiber.Router, h *handlers.LedgerHandler) {
	read := middleware.HasPermission(models.PermissionLedgerRead)
	write := middleware.HasPermission(models.PermissionLedgerWrite)

	router.Post("/deposit", write, h.Deposit)
	router.Post("/withdraw", write, h.Withdraw)
	router.Put("/name", write, h.RenameBank)

	router.Get("/balance/:account", read, h.GetBalance)
	router.Get("/me", read, h.GetMyBalance)
	router.Get("/stats", read, h.GetStats)
	router.Get("/events", read, h.GetEvents)
}
