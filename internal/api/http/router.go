package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Accounts       *handlers.AccountsHandler
	Rules          *handlers.RulesHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	adminOnly := auth.RequireStaffRole(domain.StaffRoleAdmin)

	staff := protected.Group("/staff")
	staff.Get("/me", cfg.Staff.Me)
	staff.Post("", adminOnly, cfg.Staff.Create)

	accounts := protected.Group("/accounts")
	accounts.Get("", cfg.Accounts.List)
	accounts.Post("", cfg.Accounts.Create)
	accounts.Get("/:id", cfg.Accounts.Get)
	accounts.Patch("/:id", cfg.Accounts.Update)
	accounts.Delete("/:id", adminOnly, cfg.Accounts.Delete)
	accounts.Post("/:id/qualifications", cfg.Accounts.Qualify)
	accounts.Post("/:id/convert", cfg.Accounts.Convert)

	rules := protected.Group("/rules")
	rules.Get("", cfg.Rules.List)
	rules.Get("/:id", cfg.Rules.Get)
	rules.Put("/:id", adminOnly, cfg.Rules.Put)
	rules.Delete("/:id", adminOnly, cfg.Rules.Delete)

	tickets := protected.Group("/tickets")
	tickets.Get("", cfg.Tickets.List)
	tickets.Post("", cfg.Tickets.Create)
	tickets.Post("/automated", cfg.Tickets.Trigger)
	tickets.Post("/escalations/simulate", cfg.Tickets.SimulateEscalation)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", adminOnly, cfg.Tickets.Delete)
	tickets.Post("/:id/transitions", cfg.Tickets.Transition)
	tickets.Post("/:id/notes", cfg.Tickets.AddNote)
	tickets.Post("/:id/unblock", adminOnly, cfg.Tickets.Unblock)
	tickets.Post("/:id/archive", adminOnly, cfg.Tickets.Archive)

	notifications := protected.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Delete("", cfg.Notifications.Clear)
	notifications.Post("/read", cfg.Notifications.MarkRead)
}
