package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tdcon/workplatform/internal/config"
	"github.com/tdcon/workplatform/internal/handlers"
	"github.com/tdcon/workplatform/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	adminUserHandler *handlers.AdminUserHandler,
	moduleAccessHandler *handlers.ModuleAccessHandler,
	ticketHandler *handlers.TicketHandler,
	assetHandler *handlers.AssetHandler,
	maintenanceHandler *handlers.MaintenanceHandler,
	personalHandler *handlers.PersonalHandler,
	workHandler *handlers.WorkHandler,
	teamEventHandler *handlers.TeamEventHandler,
	auditHandler *handlers.AuditHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/activate", authHandler.Activate)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret))

	// Auth (protected)
	api.Get("/auth/me", authHandler.Me)
	api.Put("/auth/password", authHandler.ChangePassword)
	api.Put("/auth/preferences", authHandler.UpdatePreferences)
	api.Get("/auth/modules", moduleAccessHandler.Mine)

	// Tickets: requester surface
	api.Get("/tickets/mine", ticketHandler.ListMine)
	api.Post("/tickets", ticketHandler.Create)
	api.Get("/tickets/mine/:id", ticketHandler.GetMine)
	api.Get("/tickets/mine/:id/events", ticketHandler.ListMyEvents)
	api.Delete("/tickets/mine/:id", ticketHandler.DeleteMine)

	// Tickets: staff surface
	api.Get("/tickets/open", ticketHandler.ListOpen)
	api.Get("/tickets/open/unassigned", ticketHandler.ListOpenUnassigned)
	api.Get("/tickets/assigned", ticketHandler.ListAssignedMine)
	api.Get("/tickets/assignable-users", ticketHandler.ListAssignableUsers)
	api.Get("/tickets/:id", ticketHandler.Get)
	api.Patch("/tickets/:id", ticketHandler.Patch)
	api.Post("/tickets/:id/assign", ticketHandler.Assign)
	api.Get("/tickets/:id/events", ticketHandler.ListEvents)

	// Assets
	api.Get("/assets", assetHandler.List)
	api.Post("/assets", assetHandler.Create)
	api.Get("/assets/:id", assetHandler.Get)
	api.Put("/assets/:id", assetHandler.Update)
	api.Delete("/assets/:id", assetHandler.Delete)
	api.Get("/assets/:id/history", assetHandler.History)

	// Maintenance sheets
	api.Get("/maintenance", maintenanceHandler.List)
	api.Post("/maintenance", maintenanceHandler.Create)
	api.Delete("/maintenance/:id", maintenanceHandler.Delete)

	// Personal workspace
	personal := api.Group("/personal")
	personal.Get("/projects", personalHandler.ListProjects)
	personal.Post("/projects", personalHandler.CreateProject)
	personal.Put("/projects/:id", personalHandler.UpdateProject)
	personal.Delete("/projects/:id", personalHandler.DeleteProject)
	personal.Get("/tasks", personalHandler.ListTasks)
	personal.Post("/tasks", personalHandler.CreateTask)
	personal.Put("/tasks/:id", personalHandler.UpdateTask)
	personal.Delete("/tasks/:id", personalHandler.DeleteTask)
	personal.Get("/notes", personalHandler.ListNotes)
	personal.Post("/notes", personalHandler.CreateNote)
	personal.Put("/notes/:id", personalHandler.UpdateNote)
	personal.Delete("/notes/:id", personalHandler.DeleteNote)

	// Work module
	work := api.Group("/work")
	work.Get("/notifications", workHandler.ListNotifications)
	work.Post("/notifications", workHandler.CreateNotification)
	work.Patch("/notifications/:id", workHandler.MarkNotificationRead)
	work.Delete("/notifications/:id", workHandler.DeleteNotification)
	work.Get("/articles", workHandler.ListArticles)
	work.Post("/articles", workHandler.CreateArticle)
	work.Put("/articles/:id", workHandler.UpdateArticle)
	work.Delete("/articles/:id", workHandler.DeleteArticle)
	work.Get("/events", teamEventHandler.List)
	work.Post("/events", teamEventHandler.Create)
	work.Delete("/events/:id", teamEventHandler.Delete)
	work.Delete("/events/by-date/:date", teamEventHandler.DeleteByDate)

	// Admin
	admin := api.Group("/admin")
	admin.Post("/users", authHandler.Register)
	admin.Get("/users", adminUserHandler.List)
	admin.Post("/users/provision", adminUserHandler.Create)
	admin.Put("/users/:id", adminUserHandler.Update)
	admin.Delete("/users/:id", adminUserHandler.Delete)
	admin.Post("/users/:id/reset-password", adminUserHandler.ResetPassword)
	admin.Post("/users/:id/activation-link", adminUserHandler.ActivationLink)
	admin.Get("/module-access", moduleAccessHandler.List)
	admin.Patch("/module-access", moduleAccessHandler.Patch)
	admin.Get("/audit-logs", auditHandler.List)
	admin.Get("/audit-logs/export", auditHandler.ExportCSV)
	admin.Post("/audit-logs/cleanup", auditHandler.Cleanup)
}
