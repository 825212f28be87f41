package dto

import (
	"time"

	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/sla"
)

// CreateTicketRequest payload. Fields, when present, becomes the JSON description.
type CreateTicketRequest struct {
	Family      string         `json:"family" validate:"omitempty,oneof=support collection"`
	Priority    string         `json:"priority" validate:"omitempty,oneof=P1 P2 P3 P4"`
	Subject     string         `json:"subject" validate:"required,max=255"`
	Description string         `json:"description"`
	Fields      map[string]any `json:"fields"`
	Channel     string         `json:"channel" validate:"max=40"`
	QueueID     *string        `json:"queue_id"`
	ContactID   *string        `json:"contact_id"`
	AccountID   *string        `json:"account_id"`
	ContractID  *string        `json:"contract_id"`
	DependentID *string        `json:"dependent_id"`
	SLADeadline *time.Time     `json:"sla_resolution_deadline"`
}

// AssignAgentRequest payload.
type AssignAgentRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
}

// TransferQueueRequest payload.
type TransferQueueRequest struct {
	QueueID string `json:"queue_id" validate:"required"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CompleteTicketRequest payload.
type CompleteTicketRequest struct {
	Reason             string `json:"completion_reason" validate:"required"`
	Category           string `json:"completion_category"`
	Subcategory        string `json:"completion_subcategory"`
	Resolution         string `json:"resolution"`
	Description        string `json:"completion_description"`
	CancellationReason string `json:"cancellation_reason"`
	CancellationNotes  string `json:"cancellation_notes"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	MessageType string `json:"message_type" validate:"required,oneof=agent_reply customer_reply internal_note system_event"`
	Body        string `json:"body" validate:"required"`
	Channel     string `json:"channel" validate:"max=40"`
}

// AttachmentRequest describes an uploaded file.
type AttachmentRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
	Size int64  `json:"size" validate:"gte=0"`
	Type string `json:"type" validate:"max=120"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                    string                `json:"id"`
	Family                domain.TicketFamily   `json:"family"`
	Status                domain.TicketStatus   `json:"status"`
	Priority              domain.TicketPriority `json:"priority"`
	Subject               string                `json:"subject"`
	QueueID               *string               `json:"queue_id"`
	AgentID               *string               `json:"agent_id"`
	ContactID             *string               `json:"contact_id"`
	SLAResolutionDeadline *time.Time            `json:"sla_resolution_deadline"`
	SLABreached           bool                  `json:"sla_breached"`
	CreatedAt             time.Time             `json:"created_date"`
	UpdatedAt             time.Time             `json:"updated_date"`
	Version               int                   `json:"version"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description     string                `json:"description"`
	Fields          map[string]any        `json:"fields,omitempty"`
	Channel         string                `json:"channel"`
	CreatedBy       string                `json:"created_by"`
	AccountID       *string               `json:"account_id"`
	ContractID      *string               `json:"contract_id"`
	DependentID     *string               `json:"dependent_id"`
	FirstResponseAt *time.Time            `json:"first_response_at"`
	ResolvedAt      *time.Time            `json:"resolved_at"`
	AgentHistory    []domain.AgentChange  `json:"agent_history"`
	QueueHistory    []domain.QueueChange  `json:"queue_history"`
	ReopenHistory   []domain.ReopenRecord `json:"reopen_history"`
	ReopenedCount   int                   `json:"reopened_count"`
	Attachments     []domain.Attachment   `json:"attachments"`
	Signature       SignatureResponse     `json:"signature"`
	Completion      *CompletionResponse   `json:"completion,omitempty"`
	SLA             *sla.View             `json:"sla,omitempty"`
}

// CompletionResponse carries completion_* fields.
type CompletionResponse struct {
	Reason             string  `json:"completion_reason"`
	Category           string  `json:"completion_category,omitempty"`
	Subcategory        string  `json:"completion_subcategory,omitempty"`
	Resolution         string  `json:"resolution,omitempty"`
	Description        string  `json:"completion_description,omitempty"`
	CancellationReason string  `json:"cancellation_reason,omitempty"`
	CancellationNotes  string  `json:"cancellation_notes,omitempty"`
	CompletedByAgentID *string `json:"completed_by_agent_id"`
}

// TicketMessageResponse represents one conversation entry.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	TicketID    string                   `json:"ticket_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorEmail string                   `json:"author_email"`
	Body        string                   `json:"body"`
	Channel     string                   `json:"channel"`
	CreatedAt   time.Time                `json:"created_date"`
}

// AuditFindingResponse is one broken lifecycle rule.
type AuditFindingResponse struct {
	TicketID string `json:"ticket_id"`
	Problem  string `json:"problem"`
}
