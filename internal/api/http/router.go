package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-maintenance/internal/api/http/handlers"
	"github.com/spec-kit/campus-maintenance/internal/auth"
	"github.com/spec-kit/campus-maintenance/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Analytics      *handlers.AnalyticsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/public/stats", cfg.Analytics.PublicStats)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/staff", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin), cfg.Auth.CreateStaff)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireRole(domain.RoleRequester), cfg.Tickets.CreateTicket)
	tickets.Post("/check-duplicates", auth.RequireRole(domain.RoleRequester), cfg.Tickets.CheckDuplicates)
	tickets.Get("", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.ListTickets)
	tickets.Get("/my", auth.RequireRole(domain.RoleRequester), cfg.Tickets.ListMyTickets)
	tickets.Get("/assigned", auth.RequireRole(domain.RoleTechnician), cfg.Tickets.ListAssignedTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/logs", cfg.Tickets.GetLogs)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Assign)
	tickets.Post("/:id/auto-assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AutoAssign)
	tickets.Post("/:id/rate", auth.RequireRole(domain.RoleRequester), cfg.Tickets.RateTicket)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)

	analytics := app.Group("/analytics", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	analytics.Get("/summary", cfg.Analytics.Summary)
	analytics.Get("/resolution-time", cfg.Analytics.ResolutionTime)
	analytics.Get("/sla-compliance", cfg.Analytics.SLACompliance)
}
