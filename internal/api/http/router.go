package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crmdesk/reply-service/internal/api/http/handlers"
	"github.com/crmdesk/reply-service/internal/auth"
	"github.com/crmdesk/reply-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Replies        *handlers.RepliesHandler
	Notifications  *handlers.NotificationsHandler
	Audit          *handlers.AuditHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	staff := auth.RequireRole(domain.RoleCSO, domain.RoleManager)
	managers := auth.RequireRole(domain.RoleManager)

	app.Get("/health/metrics", cfg.AuthMiddleware.Handle, managers, cfg.Health.Metrics)

	replies := app.Group("/replies", cfg.AuthMiddleware.Handle, staff)
	replies.Post("/", cfg.Replies.Create)
	replies.Get("/", cfg.Replies.List)
	replies.Get("/stats", managers, cfg.Replies.Stats)
	replies.Get("/approval-queue", managers, cfg.Replies.ApprovalQueue)
	replies.Get("/:id", cfg.Replies.Get)
	replies.Patch("/:id", cfg.Replies.Update)
	replies.Post("/:id/submit", cfg.Replies.Submit)
	replies.Post("/:id/approve", managers, cfg.Replies.Approve)
	replies.Post("/:id/reject", cfg.Replies.Reject)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	notifications.Get("/my", cfg.Notifications.Mine)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	audit := app.Group("/audit", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	audit.Get("/my-activity", cfg.Audit.MyActivity)
	audit.Get("/resource/:resource", managers, cfg.Audit.ResourceHistory)
	audit.Get("/", managers, cfg.Audit.List)
	audit.Get("/:id", managers, cfg.Audit.Get)
}
