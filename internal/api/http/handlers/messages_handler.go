package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/api/dto"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/service"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// MessagesHandler serves the ticket conversation and attachments.
type MessagesHandler struct {
	tickets *service.TicketService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(tickets *service.TicketService) *MessagesHandler {
	return &MessagesHandler{tickets: tickets}
}

// ListMessages GET /tickets/:id/messages.
func (h *MessagesHandler) ListMessages(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	messages, err := h.tickets.ListMessages(c.UserContext(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, messageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AppendMessage POST /tickets/:id/messages.
func (h *MessagesHandler) AppendMessage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.tickets.AppendMessage(c.UserContext(), actor, c.Params("id"), service.MessageInput{
		Type:    domain.TicketMessageType(req.MessageType),
		Body:    req.Body,
		Channel: req.Channel,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"message":       messageResponse(result.Message),
		"ticket":        ticketDetail(result.Ticket, nil),
		"first_replied": result.FirstReplied,
	}})
}

// AddAttachment POST /tickets/:id/attachments.
func (h *MessagesHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AttachmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.AddAttachment(c.UserContext(), actor, c.Params("id"), domain.Attachment{
		Name: req.Name,
		URL:  req.URL,
		Size: req.Size,
		Type: req.Type,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}

// RemoveAttachment DELETE /tickets/:id/attachments/:index.
func (h *MessagesHandler) RemoveAttachment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return apperrors.NewValidationError("invalid attachment index", nil)
	}
	ticket, err := h.tickets.RemoveAttachment(c.UserContext(), actor, c.Params("id"), index)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, nil)})
}
