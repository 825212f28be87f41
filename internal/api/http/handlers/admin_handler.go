package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/api/dto"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/repository"
	"github.com/spec-kit/atendimento-service/internal/service"
)

// AdminHandler serves agent login plus agent and queue administration.
type AdminHandler struct {
	auth   *service.AuthService
	agents *service.AgentService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, agents *service.AgentService) *AdminHandler {
	return &AdminHandler{auth: authService, agents: agents}
}

// Login POST /auth/agents/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	agent, token, exp, err := h.auth.LoginAgent(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   exp,
		Agent:       agentResponse(agent),
	}})
}

// CreateAgent POST /admin/agents.
func (h *AdminHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	agent, err := h.agents.CreateAgent(c.UserContext(), service.AgentCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.AgentRole(req.Role),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// ListAgents GET /admin/agents.
func (h *AdminHandler) ListAgents(c *fiber.Ctx) error {
	pageSize := parseInt(c.Query("page_size"), 50)
	filter := repository.AgentFilter{
		Limit:  pageSize,
		Offset: (parseInt(c.Query("page"), 1) - 1) * pageSize,
	}
	if role := optional(c.Query("role")); role != nil {
		r := domain.AgentRole(*role)
		filter.Role = &r
	}
	switch c.Query("active") {
	case "true":
		active := true
		filter.Active = &active
	case "false":
		active := false
		filter.Active = &active
	}
	agents, err := h.agents.ListAgents(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetAgentActive PATCH /admin/agents/:id/active.
func (h *AdminHandler) SetAgentActive(c *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	agent, err := h.agents.SetAgentActive(c.UserContext(), c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// CreateQueue POST /admin/queues.
func (h *AdminHandler) CreateQueue(c *fiber.Ctx) error {
	var req dto.CreateQueueRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	queue, err := h.agents.CreateQueue(c.UserContext(), req.Name, req.Team, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": queueResponse(queue)})
}

// ListQueues GET /queues.
func (h *AdminHandler) ListQueues(c *fiber.Ctx) error {
	queues, err := h.agents.ListQueues(c.UserContext(), c.QueryBool("include_inactive", false))
	if err != nil {
		return err
	}
	items := make([]dto.QueueResponse, 0, len(queues))
	for i := range queues {
		items = append(items, queueResponse(&queues[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetQueueActive PATCH /admin/queues/:id/active.
func (h *AdminHandler) SetQueueActive(c *fiber.Ctx) error {
	var req dto.SetActiveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	queue, err := h.agents.SetQueueActive(c.UserContext(), c.Params("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": queueResponse(queue)})
}
