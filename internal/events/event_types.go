package events

import (
	"time"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketAgentAssigned     EventType = "ticket_agent_assigned"
	EventTicketQueueTransferred  EventType = "ticket_queue_transferred"
	EventTicketFirstResponse     EventType = "ticket_first_response"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketCompleted         EventType = "ticket_completed"
	EventTicketReopened          EventType = "ticket_reopened"
	EventTicketMessageAdded      EventType = "ticket_message_added"
	EventTicketSignatureChanged  EventType = "ticket_signature_changed"
	EventTicketAttachmentChanged EventType = "ticket_attachment_changed"
)

// AllEventTypes lists every type the lifecycle service publishes.
func AllEventTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketAgentAssigned,
		EventTicketQueueTransferred,
		EventTicketFirstResponse,
		EventTicketStatusChanged,
		EventTicketCompleted,
		EventTicketReopened,
		EventTicketMessageAdded,
		EventTicketSignatureChanged,
		EventTicketAttachmentChanged,
	}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Family   domain.TicketFamily   `json:"family"`
	Priority domain.TicketPriority `json:"priority"`
	Subject  string                `json:"subject"`
	QueueID  *string               `json:"queue_id,omitempty"`
}

// TicketAgentAssignedPayload payload.
type TicketAgentAssignedPayload struct {
	PreviousAgentID *string             `json:"previous_agent_id,omitempty"`
	NewAgentID      string              `json:"new_agent_id"`
	Status          domain.TicketStatus `json:"status"`
}

// TicketQueueTransferredPayload payload.
type TicketQueueTransferredPayload struct {
	PreviousQueueID *string `json:"previous_queue_id,omitempty"`
	NewQueueID      string  `json:"new_queue_id"`
}

// TicketFirstResponsePayload payload.
type TicketFirstResponsePayload struct {
	FirstResponseAt time.Time `json:"first_response_at"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCompletedPayload payload.
type TicketCompletedPayload struct {
	Reason             string    `json:"completion_reason"`
	Category           string    `json:"completion_category,omitempty"`
	Subcategory        string    `json:"completion_subcategory,omitempty"`
	CompletedByAgentID string    `json:"completed_by_agent_id"`
	ResolvedAt         time.Time `json:"resolved_at"`
}

// TicketReopenedPayload payload.
type TicketReopenedPayload struct {
	PreviousStatus domain.TicketStatus `json:"previous_status"`
	ReopenedCount  int                 `json:"reopened_count"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorEmail string                   `json:"author_email"`
	Channel     string                   `json:"channel"`
	BodyPreview string                   `json:"body_preview"`
}

// TicketSignatureChangedPayload payload.
type TicketSignatureChangedPayload struct {
	Method domain.SignatureMethod `json:"method"`
	Status domain.SignatureStatus `json:"status"`
	URL    *string                `json:"url,omitempty"`
}

// TicketAttachmentChangedPayload payload.
type TicketAttachmentChangedPayload struct {
	Action string `json:"action"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Count  int    `json:"count"`
}
