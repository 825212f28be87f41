package dto

import (
	"time"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// SignInPersonRequest payload.
type SignInPersonRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ProviderSignatureRequest payload.
type ProviderSignatureRequest struct {
	SignerName  string `json:"signer_name" validate:"required,max=255"`
	SignerEmail string `json:"signer_email" validate:"omitempty,email"`
}

// CompleteLinkSignatureRequest payload of the public link endpoint.
type CompleteLinkSignatureRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ProviderWebhookRequest is the provider push notification.
type ProviderWebhookRequest struct {
	DocumentID    string `json:"document_id" validate:"required"`
	SignedFileURL string `json:"signed_file_url" validate:"required,url"`
}

// SignatureResponse carries signature_* fields.
type SignatureResponse struct {
	Method     domain.SignatureMethod `json:"signature_method,omitempty"`
	Status     domain.SignatureStatus `json:"signature_status"`
	URL        *string                `json:"signature_url"`
	Date       *time.Time             `json:"signature_date"`
	DocumentID *string                `json:"signature_document_id,omitempty"`
}

// SignatureLinkResponse is returned when a link is issued.
type SignatureLinkResponse struct {
	TicketID string `json:"ticket_id"`
	Token    string `json:"token"`
}

// ProviderSignatureResponse is returned when a provider document is opened.
type ProviderSignatureResponse struct {
	TicketID   string `json:"ticket_id"`
	DocumentID string `json:"document_id"`
	SignURL    string `json:"sign_url,omitempty"`
}
