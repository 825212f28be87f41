package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/api/dto"
	"github.com/spec-kit/atendimento-service/internal/service"
)

// SignaturesHandler drives the signature sub-lifecycle.
type SignaturesHandler struct {
	signatures *service.SignatureService
}

// NewSignaturesHandler constructs handler.
func NewSignaturesHandler(signatures *service.SignatureService) *SignaturesHandler {
	return &SignaturesHandler{signatures: signatures}
}

// SignInPerson POST /tickets/:id/signature/presencial.
func (h *SignaturesHandler) SignInPerson(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SignInPersonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.signatures.SignInPerson(c.UserContext(), actor, c.Params("id"), req.URL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": signatureResponse(ticket.Signature)})
}

// RequestLink POST /tickets/:id/signature/link.
func (h *SignaturesHandler) RequestLink(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, token, err := h.signatures.RequestLink(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SignatureLinkResponse{
		TicketID: ticket.ID,
		Token:    token,
	}})
}

// RequestProvider POST /tickets/:id/signature/autentique.
func (h *SignaturesHandler) RequestProvider(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ProviderSignatureRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.signatures.RequestProvider(c.UserContext(), actor, c.Params("id"), service.ProviderSigner{
		Name:  req.SignerName,
		Email: req.SignerEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ProviderSignatureResponse{
		TicketID:   result.Ticket.ID,
		DocumentID: result.DocumentID,
		SignURL:    result.SignURL,
	}})
}

// CheckProvider POST /tickets/:id/signature/autentique/check.
func (h *SignaturesHandler) CheckProvider(c *fiber.Ctx) error {
	ticket, signed, err := h.signatures.CheckProviderSignature(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"signed":    signed,
		"signature": signatureResponse(ticket.Signature),
	}})
}

// CompleteLink POST /public/signatures/:token.
func (h *SignaturesHandler) CompleteLink(c *fiber.Ctx) error {
	var req dto.CompleteLinkSignatureRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.signatures.CompleteLink(c.UserContext(), c.Params("token"), req.URL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": signatureResponse(ticket.Signature)})
}

// ProviderWebhook POST /webhooks/autentique.
func (h *SignaturesHandler) ProviderWebhook(c *fiber.Ctx) error {
	var req dto.ProviderWebhookRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.signatures.CompleteProvider(c.UserContext(), req.DocumentID, req.SignedFileURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket_id": ticket.ID,
		"signature": signatureResponse(ticket.Signature),
	}})
}
