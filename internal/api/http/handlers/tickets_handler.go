package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/api/dto"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/repository"
	"github.com/spec-kit/atendimento-service/internal/service"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Family:      domain.TicketFamily(req.Family),
		Priority:    domain.TicketPriority(req.Priority),
		Subject:     req.Subject,
		Description: req.Description,
		Fields:      req.Fields,
		Channel:     req.Channel,
		QueueID:     req.QueueID,
		ContactID:   req.ContactID,
		AccountID:   req.AccountID,
		ContractID:  req.ContractID,
		DependentID: req.DependentID,
		SLADeadline: req.SLADeadline,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.tickets.ListTickets(c.UserContext(), parseTicketFilter(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAtRisk GET /tickets/at-risk.
func (h *TicketsHandler) ListAtRisk(c *fiber.Ctx) error {
	details, err := h.tickets.ListAtRisk(c.UserContext(), parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	items := make([]dto.TicketDetailResponse, 0, len(details))
	for i := range details {
		items = append(items, ticketDetail(details[i].Ticket, &details[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	details, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(details.Ticket, details)})
}

// AssignAgent POST /tickets/:id/assign.
func (h *TicketsHandler) AssignAgent(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignAgentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignments.AssignAgent(c.UserContext(), actor, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// AutoAssign POST /tickets/:id/auto-assign.
func (h *TicketsHandler) AutoAssign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.assignments.AutoAssign(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// TransferQueue POST /tickets/:id/transfer.
func (h *TicketsHandler) TransferQueue(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransferQueueRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignments.TransferQueue(c.UserContext(), actor, c.Params("id"), req.QueueID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// Complete POST /tickets/:id/complete.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CompleteTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Complete(c.UserContext(), actor, c.Params("id"), domain.Completion{
		Reason:             req.Reason,
		Category:           req.Category,
		Subcategory:        req.Subcategory,
		Resolution:         req.Resolution,
		Description:        req.Description,
		CancellationReason: req.CancellationReason,
		CancellationNotes:  req.CancellationNotes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Reopen(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// Audit GET /admin/audit.
func (h *TicketsHandler) Audit(c *fiber.Ctx) error {
	findings, err := h.tickets.Audit(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AuditFindingResponse, 0, len(findings))
	for _, f := range findings {
		items = append(items, dto.AuditFindingResponse{TicketID: f.TicketID, Problem: f.Problem})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketFilter(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{
		QueueID:     optional(c.Query("queue_id")),
		AgentID:     optional(c.Query("agent_id")),
		ContactID:   optional(c.Query("contact_id")),
		SearchTerm:  optional(c.Query("q")),
		CreatedFrom: parseTime(c.Query("created_from")),
		CreatedTo:   parseTime(c.Query("created_to")),
	}
	if family := optional(c.Query("family")); family != nil {
		f := domain.TicketFamily(*family)
		filter.Family = &f
	}
	for _, s := range splitList(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(s))
	}
	for _, p := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(p))
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
