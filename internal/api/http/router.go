package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/simgate/sim-gateway/internal/api/http/handlers"
	"github.com/simgate/sim-gateway/internal/auth"
	"github.com/simgate/sim-gateway/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Slots          *handlers.SlotsHandler
	Ussd           *handlers.UssdHandler
	Transactions   *handlers.TransactionsHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)
	operator := auth.RequireRole(auth.RoleOperator)

	api.Get("/slots", operator, cfg.Slots.ListSlots)
	api.Post("/slots/balance", operator, cfg.Ussd.Balance)
	api.Get("/slots/:number", operator, cfg.Slots.GetSlot)
	api.Patch("/slots/:number/status", auth.RequireRole(auth.RoleAdmin), cfg.Slots.UpdateStatus)

	api.Post("/ussd", operator, cfg.Ussd.Send)
	api.Post("/transfers", operator, cfg.Ussd.Transfer)
	api.Get("/transactions", operator, cfg.Transactions.List)
}
