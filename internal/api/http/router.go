package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/api/http/handlers"
	"github.com/spec-kit/atendimento-service/internal/auth"
	"github.com/spec-kit/atendimento-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Messages       *handlers.MessagesHandler
	Signatures     *handlers.SignaturesHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/agents/login", cfg.Admin.Login)

	// Unauthenticated: the signature link token and the provider callback carry their own identity.
	app.Post("/public/signatures/:token", cfg.Signatures.CompleteLink)
	app.Post("/webhooks/autentique", cfg.Signatures.ProviderWebhook)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.AgentRoleAdmin, domain.AgentRoleSupervisor))
	admin.Get("/audit", cfg.Tickets.Audit)
	admin.Get("/agents", cfg.Admin.ListAgents)
	admin.Post("/agents", cfg.Admin.CreateAgent)
	admin.Patch("/agents/:id/active", cfg.Admin.SetAgentActive)
	admin.Get("/queues", cfg.Admin.ListQueues)
	admin.Post("/queues", cfg.Admin.CreateQueue)
	admin.Patch("/queues/:id/active", cfg.Admin.SetQueueActive)

	agents := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	agents.Get("/queues", cfg.Admin.ListQueues)

	tickets := agents.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/at-risk", cfg.Tickets.ListAtRisk)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignAgent)
	tickets.Post("/:id/auto-assign", cfg.Tickets.AutoAssign)
	tickets.Post("/:id/transfer", cfg.Tickets.TransferQueue)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/complete", cfg.Tickets.Complete)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)

	tickets.Get("/:id/messages", cfg.Messages.ListMessages)
	tickets.Post("/:id/messages", cfg.Messages.AppendMessage)
	tickets.Post("/:id/attachments", cfg.Messages.AddAttachment)
	tickets.Delete("/:id/attachments/:index", cfg.Messages.RemoveAttachment)

	tickets.Post("/:id/signature/presencial", cfg.Signatures.SignInPerson)
	tickets.Post("/:id/signature/link", cfg.Signatures.RequestLink)
	tickets.Post("/:id/signature/autentique", cfg.Signatures.RequestProvider)
	tickets.Post("/:id/signature/autentique/check", cfg.Signatures.CheckProvider)
}
