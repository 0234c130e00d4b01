package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-io/ticketing-service/internal/api/http/handlers"
	"github.com/helpdesk-io/ticketing-service/internal/auth"
	"github.com/helpdesk-io/ticketing-service/internal/domain"
	"github.com/helpdesk-io/ticketing-service/internal/observability"
)

// RouterDependencies bundles everything the HTTP layer needs.
type RouterDependencies struct {
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Analytics      *handlers.AnalyticsHandler
	AdminUsers     *handlers.AdminUsersHandler
}

// NewApp builds the fiber application with middleware and routes wired.
func NewApp(deps RouterDependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  deps.RequestTimeout,
		WriteTimeout: deps.RequestTimeout,
		ErrorHandler: ErrorHandler(deps.Logger, deps.Metrics),
	})

	app.Use(Recover(deps.Logger))
	app.Use(observability.RequestLogger(deps.Logger, deps.Metrics))

	app.Get("/health", deps.Health.Check)

	api := app.Group("/api/v1")

	api.Post("/auth/register", deps.Users.Register)
	api.Post("/auth/login", deps.Users.Login)

	authed := api.Group("", deps.AuthMiddleware.Handle)

	tickets := authed.Group("/tickets")
	tickets.Post("", deps.Tickets.Create)
	tickets.Get("", deps.Tickets.List)
	tickets.Get("/:id", deps.Tickets.Get)
	tickets.Patch("/:id", auth.RequireStaff(), deps.Tickets.Update)
	tickets.Post("/:id/status", auth.RequireStaff(), deps.Tickets.ChangeStatus)
	tickets.Post("/:id/assign", auth.RequireStaff(), deps.Tickets.Assign)
	tickets.Get("/:id/comments", deps.Tickets.ListComments)
	tickets.Post("/:id/comments", deps.Tickets.AddComment)

	notifications := authed.Group("/notifications")
	notifications.Get("", deps.Notifications.List)
	notifications.Get("/unread-count", deps.Notifications.UnreadCount)
	notifications.Post("/:id/read", deps.Notifications.MarkRead)
	notifications.Post("/read-all", deps.Notifications.MarkAllRead)

	authed.Get("/dashboard", deps.Analytics.Dashboard)

	analytics := authed.Group("/analytics", auth.RequireStaff())
	analytics.Get("/overview", deps.Analytics.Overview)
	analytics.Get("/team-performance", deps.Analytics.TeamPerformance)
	analytics.Get("/resolution-time", deps.Analytics.ResolutionTime)
	analytics.Get("/creation-trend", deps.Analytics.CreationTrend)

	admin := authed.Group("/admin/users", auth.RequireRole(domain.RoleAdmin))
	admin.Get("", deps.AdminUsers.List)
	admin.Patch("/:id/role", deps.AdminUsers.ChangeRole)
	admin.Patch("/:id/active", deps.AdminUsers.SetActive)

	return app
}
