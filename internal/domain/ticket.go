package domain

import (
	"strings"
	"time"
)

// Completion carries the data an agent records when finishing a ticket.
type Completion struct {
	Reason             string
	Category           string
	Subcategory        string
	Resolution         string
	Description        string
	CancellationReason string
	CancellationNotes  string
}

func (c Completion) merge(in Completion) Completion {
	pick := func(current, incoming string) string {
		if v := strings.TrimSpace(incoming); v != "" {
			return v
		}
		return current
	}
	return Completion{
		Reason:             pick(c.Reason, in.Reason),
		Category:           pick(c.Category, in.Category),
		Subcategory:        pick(c.Subcategory, in.Subcategory),
		Resolution:         pick(c.Resolution, in.Resolution),
		Description:        pick(c.Description, in.Description),
		CancellationReason: pick(c.CancellationReason, in.CancellationReason),
		CancellationNotes:  pick(c.CancellationNotes, in.CancellationNotes),
	}
}

// Ticket is the aggregate for customer-service work.
type Ticket struct {
	ID          string
	Family      TicketFamily
	Status      TicketStatus
	Priority    TicketPriority
	Subject     string
	Description string
	Channel     string
	CreatedBy   string

	QueueID     *string
	AgentID     *string
	ContactID   *string
	AccountID   *string
	ContractID  *string
	DependentID *string

	CreatedAt             time.Time
	UpdatedAt             time.Time
	FirstResponseAt       *time.Time
	ResolvedAt            *time.Time
	SLAResolutionDeadline *time.Time
	SLABreached           bool

	AgentHistory  []AgentChange
	QueueHistory  []QueueChange
	ReopenHistory []ReopenRecord
	ReopenedCount int
	Attachments   []Attachment

	Signature          Signature
	Completion         Completion
	CompletedByAgentID *string

	// Version is the optimistic concurrency token maintained by the store.
	Version int
}

// NewTicket opens a ticket in the novo status.
func NewTicket(family TicketFamily, priority TicketPriority, subject, description, createdBy string, now time.Time) *Ticket {
	return &Ticket{
		Family:      family,
		Status:      StatusNovo,
		Priority:    priority,
		Subject:     strings.TrimSpace(subject),
		Description: description,
		Channel:     DefaultChannel,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Signature:   Signature{Status: SignatureStatusNone},
	}
}

// AssignAgent records the agent change and moves novo tickets to atribuido.
func (t *Ticket) AssignAgent(agentID, actor string, now time.Time) error {
	if t.AgentID != nil && *t.AgentID == agentID {
		return ErrNoChange
	}
	t.AgentHistory = append(t.AgentHistory, AgentChange{
		PreviousAgentID: cloneString(t.AgentID),
		NewAgentID:      agentID,
		ChangedAt:       now,
		ChangedBy:       actor,
	})
	t.AgentID = &agentID
	if t.Status == StatusNovo {
		t.Status = StatusAtribuido
	}
	t.touch(now)
	return nil
}

// TransferQueue records the queue change. Status is untouched.
func (t *Ticket) TransferQueue(queueID, actor string, now time.Time) error {
	if t.QueueID != nil && *t.QueueID == queueID {
		return ErrNoChange
	}
	t.QueueHistory = append(t.QueueHistory, QueueChange{
		PreviousQueueID: cloneString(t.QueueID),
		NewQueueID:      queueID,
		ChangedAt:       now,
		ChangedBy:       actor,
	})
	t.QueueID = &queueID
	t.touch(now)
	return nil
}

// RecordFirstReply advances a ticket that has not been worked yet after an agent reply.
// first_response_at is only written while still null. It reports whether anything changed.
func (t *Ticket) RecordFirstReply(now time.Time) bool {
	if t.Status != StatusNovo && t.Status != StatusAtribuido {
		return false
	}
	t.Status = StatusEmAtendimento
	if t.FirstResponseAt == nil {
		at := now
		t.FirstResponseAt = &at
	}
	t.touch(now)
	return true
}

// Complete resolves a ticket that has been worked at least once.
func (t *Ticket) Complete(data Completion, actor string, now time.Time) error {
	if t.Status == StatusNovo || t.Status.IsResolved() {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(data.Reason) == "" {
		return ErrCompletionReasonRequired
	}
	t.Completion = t.Completion.merge(data)
	t.Status = StatusResolvido
	resolvedAt := now
	t.ResolvedAt = &resolvedAt
	t.CompletedByAgentID = &actor
	t.touch(now)
	return nil
}

// Reopen puts a resolved or closed ticket back in progress. resolved_at is always
// cleared; completion data is cleared only when clearCompletion is set.
func (t *Ticket) Reopen(actor string, now time.Time, clearCompletion bool) error {
	if !t.Status.IsResolved() {
		return ErrInvalidTransition
	}
	t.ReopenHistory = append(t.ReopenHistory, ReopenRecord{
		ReopenedAt:     now,
		ReopenedBy:     actor,
		PreviousStatus: t.Status,
	})
	t.ReopenedCount++
	t.Status = StatusEmAtendimento
	t.ResolvedAt = nil
	if clearCompletion {
		t.Completion = Completion{}
		t.CompletedByAgentID = nil
	}
	t.touch(now)
	return nil
}

// ChangeStatus moves between working and waiting states.
func (t *Ticket) ChangeStatus(next TicketStatus, now time.Time) error {
	if t.Status == next {
		return ErrNoChange
	}
	if !CanChangeManually(t.Family, t.Status, next) {
		return ErrInvalidTransition
	}
	t.Status = next
	t.touch(now)
	return nil
}

// Archive closes a resolved ticket. Only families with a fechado status can be archived.
func (t *Ticket) Archive(now time.Time) error {
	if t.Status != StatusResolvido || !t.Family.Allows(StatusFechado) {
		return ErrInvalidTransition
	}
	t.Status = StatusFechado
	t.touch(now)
	return nil
}

// AddAttachment appends a file to the ticket.
func (t *Ticket) AddAttachment(att Attachment, now time.Time) error {
	att.Name = strings.TrimSpace(att.Name)
	att.URL = strings.TrimSpace(att.URL)
	if att.Name == "" || att.URL == "" {
		return ErrInvalidAttachment
	}
	if att.UploadedAt.IsZero() {
		att.UploadedAt = now
	}
	t.Attachments = append(t.Attachments, att)
	t.touch(now)
	return nil
}

// RemoveAttachment drops the attachment at index, keeping the order of the rest.
func (t *Ticket) RemoveAttachment(index int, now time.Time) (Attachment, error) {
	if index < 0 || index >= len(t.Attachments) {
		return Attachment{}, ErrAttachmentNotFound
	}
	removed := t.Attachments[index]
	remaining := make([]Attachment, 0, len(t.Attachments)-1)
	remaining = append(remaining, t.Attachments[:index]...)
	remaining = append(remaining, t.Attachments[index+1:]...)
	t.Attachments = remaining
	t.touch(now)
	return removed, nil
}

// StructuredFields parses the description as a JSON object.
func (t *Ticket) StructuredFields() StructuredFields {
	return ParseStructuredDescription(t.Description)
}

func (t *Ticket) touch(now time.Time) {
	t.UpdatedAt = now
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
