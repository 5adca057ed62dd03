package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pedrovega1/it-helpdesk/internal/api/http/handlers"
	"github.com/pedrovega1/it-helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   fiber.Handler
	APILimiter     fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	api := app.Group("/api")

	api.Get("/health", cfg.Health.Health)
	api.Post("/login", cfg.LoginLimiter, cfg.Auth.Login)

	protected := api.Group("", cfg.APILimiter, cfg.AuthMiddleware.Handle)
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/verify", cfg.Auth.Verify)
	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Post("/tickets/update", cfg.Tickets.UpdateTicket)
}
