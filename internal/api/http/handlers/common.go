package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/api/dto"
	"github.com/spec-kit/atendimento-service/internal/auth"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/service"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// bind parses the JSON body into req and validates its tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return service.Actor{}, apperrors.NewUnauthorized("agent required")
	}
	return service.Actor{AgentID: principal.Agent.ID, Email: principal.Agent.Email}, nil
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func optional(val string) *string {
	if val = strings.TrimSpace(val); val == "" {
		return nil
	}
	return &val
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                    ticket.ID,
		Family:                ticket.Family,
		Status:                ticket.Status,
		Priority:              ticket.Priority,
		Subject:               ticket.Subject,
		QueueID:               ticket.QueueID,
		AgentID:               ticket.AgentID,
		ContactID:             ticket.ContactID,
		SLAResolutionDeadline: ticket.SLAResolutionDeadline,
		SLABreached:           ticket.SLABreached,
		CreatedAt:             ticket.CreatedAt,
		UpdatedAt:             ticket.UpdatedAt,
		Version:               ticket.Version,
	}
}

func ticketDetail(ticket *domain.Ticket, details *service.TicketDetails) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketSummary:   ticketSummary(ticket),
		Description:     ticket.Description,
		Channel:         ticket.Channel,
		CreatedBy:       ticket.CreatedBy,
		AccountID:       ticket.AccountID,
		ContractID:      ticket.ContractID,
		DependentID:     ticket.DependentID,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		AgentHistory:    nonNil(ticket.AgentHistory),
		QueueHistory:    nonNil(ticket.QueueHistory),
		ReopenHistory:   nonNil(ticket.ReopenHistory),
		ReopenedCount:   ticket.ReopenedCount,
		Attachments:     nonNil(ticket.Attachments),
		Signature:       signatureResponse(ticket.Signature),
	}
	if ticket.Completion.Reason != "" {
		resp.Completion = &dto.CompletionResponse{
			Reason:             ticket.Completion.Reason,
			Category:           ticket.Completion.Category,
			Subcategory:        ticket.Completion.Subcategory,
			Resolution:         ticket.Completion.Resolution,
			Description:        ticket.Completion.Description,
			CancellationReason: ticket.Completion.CancellationReason,
			CancellationNotes:  ticket.Completion.CancellationNotes,
			CompletedByAgentID: ticket.CompletedByAgentID,
		}
	}
	if details != nil {
		view := details.SLA
		resp.SLA = &view
		resp.Fields = details.Fields
	}
	return resp
}

func signatureResponse(sig domain.Signature) dto.SignatureResponse {
	return dto.SignatureResponse{
		Method:     sig.Method,
		Status:     sig.Status,
		URL:        sig.URL,
		Date:       sig.Date,
		DocumentID: sig.DocumentID,
	}
}

func messageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:          msg.ID,
		TicketID:    msg.TicketID,
		MessageType: msg.MessageType,
		AuthorEmail: msg.AuthorEmail,
		Body:        msg.Body,
		Channel:     msg.Channel,
		CreatedAt:   msg.CreatedAt,
	}
}

func agentResponse(agent *domain.Agent) dto.AgentResponse {
	return dto.AgentResponse{
		ID:        agent.ID,
		Name:      agent.Name,
		Email:     agent.Email,
		Role:      agent.Role,
		Active:    agent.Active,
		CreatedAt: agent.CreatedAt,
	}
}

func queueResponse(queue *domain.Queue) dto.QueueResponse {
	return dto.QueueResponse{
		ID:          queue.ID,
		Name:        queue.Name,
		Team:        queue.Team,
		Description: queue.Description,
		IsActive:    queue.IsActive,
		CreatedAt:   queue.CreatedAt,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
