package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/observability"
	"github.com/spec-kit/atendimento-service/internal/repository"
	"github.com/spec-kit/atendimento-service/internal/sla"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	scanPageSize     = 200
	bodyPreviewRunes = 140
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	lifecycle
	sanitizer     *bluemonday.Policy
	policy        sla.Policy
	atRiskWindow  time.Duration
	clearOnReopen bool
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	SLAPolicy  sla.Policy
	// AtRiskWindow defaults to sla.DefaultAtRiskWindow.
	AtRiskWindow           time.Duration
	ReopenClearsCompletion bool
	Now                    func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Family      domain.TicketFamily
	Priority    domain.TicketPriority
	Subject     string
	Description string
	// Fields, when set, is stored as the JSON description instead of Description.
	Fields      domain.StructuredFields
	Channel     string
	QueueID     *string
	ContactID   *string
	AccountID   *string
	ContractID  *string
	DependentID *string
	SLADeadline *time.Time
}

// TicketDetails is a ticket plus its derived presentation state.
type TicketDetails struct {
	Ticket *domain.Ticket
	SLA    sla.View
	Fields domain.StructuredFields
}

// MessageInput is one entry appended to a ticket conversation.
type MessageInput struct {
	Type    domain.TicketMessageType
	Body    string
	Channel string
}

// AppendMessageResult reports the message and the ticket state after the append.
type AppendMessageResult struct {
	Message      *domain.TicketMessage
	Ticket       *domain.Ticket
	FirstReplied bool
}

// ArchiveResult counts what an archive run did.
type ArchiveResult struct {
	Archived int
	Skipped  int
}

// AuditFinding is a ticket whose stored state breaks a lifecycle rule.
type AuditFinding struct {
	TicketID string
	Problem  string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	policy := deps.SLAPolicy
	if policy.Resolution == nil {
		policy = sla.DefaultPolicy()
	}
	window := deps.AtRiskWindow
	if window <= 0 {
		window = sla.DefaultAtRiskWindow
	}
	return &TicketService{
		lifecycle:     newLifecycle(deps.Store, deps.Dispatcher, deps.Metrics, deps.Logger, deps.Now),
		sanitizer:     bluemonday.UGCPolicy(),
		policy:        policy,
		atRiskWindow:  window,
		clearOnReopen: deps.ReopenClearsCompletion,
	}
}

// CreateTicket opens a ticket in novo.
func (s *TicketService) CreateTicket(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}
	family := input.Family
	if family == "" {
		family = domain.FamilySupport
	}
	if _, err := domain.ParseFamily(string(family)); err != nil {
		return nil, mapDomainError(err)
	}
	priority, err := domain.ParsePriority(string(input.Priority))
	if err != nil {
		return nil, mapDomainError(err)
	}

	description := input.Description
	if len(input.Fields) > 0 {
		encoded, err := domain.EncodeStructuredDescription(input.Fields)
		if err != nil {
			return nil, apperrors.NewValidationError("fields cannot be encoded", map[string]any{"error": err.Error()})
		}
		description = encoded
	}

	if input.QueueID != nil {
		queue, err := s.store.Queues().GetByID(ctx, *input.QueueID)
		if err != nil {
			return nil, mapStoreError(err, "queue", *input.QueueID)
		}
		if !queue.IsActive {
			return nil, apperrors.NewConflict("queue inactive", map[string]any{"queue_id": queue.ID})
		}
	}

	now := s.clock()
	ticket := domain.NewTicket(family, priority, subject, description, actor.String(), now)
	ticket.ID = uuid.NewString()
	if ch := strings.TrimSpace(input.Channel); ch != "" {
		ticket.Channel = ch
	}
	ticket.QueueID = input.QueueID
	ticket.ContactID = input.ContactID
	ticket.AccountID = input.AccountID
	ticket.ContractID = input.ContractID
	ticket.DependentID = input.DependentID
	if input.SLADeadline != nil {
		deadline := input.SLADeadline.UTC()
		ticket.SLAResolutionDeadline = &deadline
	} else {
		ticket.SLAResolutionDeadline = s.policy.DeadlineFor(priority, now)
	}

	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, mapStoreError(err, "ticket", ticket.ID)
	}
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketCreated, events.TicketCreatedPayload{
		Family:   ticket.Family,
		Priority: ticket.Priority,
		Subject:  ticket.Subject,
		QueueID:  ticket.QueueID,
	})
	return ticket, nil
}

// GetTicket returns the ticket with its SLA view and parsed description.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketDetails, error) {
	ticket, err := s.loadTicket(ctx, s.store.Tickets(), ticketID)
	if err != nil {
		return nil, err
	}
	return s.details(ticket), nil
}

func (s *TicketService) details(ticket *domain.Ticket) *TicketDetails {
	return &TicketDetails{
		Ticket: ticket,
		SLA:    sla.Evaluate(ticket.SLAResolutionDeadline, ticket.SLABreached, s.clock(), s.atRiskWindow),
		Fields: ticket.StructuredFields(),
	}
}

// ListTickets lists tickets matching filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	tickets, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err, "ticket", "")
	}
	return tickets, nil
}

// ChangeStatus moves a ticket between working and waiting states.
func (s *TicketService) ChangeStatus(ctx context.Context, actor Actor, ticketID, rawStatus string) (*domain.Ticket, error) {
	var old domain.TicketStatus
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		next, err := domain.ParseStatus(t.Family, rawStatus)
		if err != nil {
			return err
		}
		old = t.Status
		return t.ChangeStatus(next, s.clock())
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: old,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// Complete resolves a worked ticket.
func (s *TicketService) Complete(ctx context.Context, actor Actor, ticketID string, data domain.Completion) (*domain.Ticket, error) {
	completedBy := actor.String()
	var old domain.TicketStatus
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		old = t.Status
		return t.Complete(data, completedBy, s.clock())
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: old,
		NewStatus: ticket.Status,
	})
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketCompleted, events.TicketCompletedPayload{
		Reason:             ticket.Completion.Reason,
		Category:           ticket.Completion.Category,
		Subcategory:        ticket.Completion.Subcategory,
		CompletedByAgentID: completedBy,
		ResolvedAt:         *ticket.ResolvedAt,
	})
	return ticket, nil
}

// Reopen moves a resolved or closed ticket back to em_atendimento.
func (s *TicketService) Reopen(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	var old domain.TicketStatus
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		old = t.Status
		return t.Reopen(actor.String(), s.clock(), s.clearOnReopen)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: old,
		NewStatus: ticket.Status,
	})
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketReopened, events.TicketReopenedPayload{
		PreviousStatus: old,
		ReopenedCount:  ticket.ReopenedCount,
	})
	return ticket, nil
}

// Archive closes tickets resolved before now-olderThan. Only families with a fechado
// status are queried. Each ticket is its own write; a conflict on one does not stop the run.
func (s *TicketService) Archive(ctx context.Context, olderThan time.Duration, limit int) (ArchiveResult, error) {
	var result ArchiveResult
	if limit <= 0 {
		limit = scanPageSize
	}
	before := s.clock().Add(-olderThan)
	for _, family := range domain.ArchivableFamilies() {
		remaining := limit - result.Archived - result.Skipped
		if remaining <= 0 {
			break
		}
		candidates, err := s.store.Tickets().ListResolvedBefore(ctx, family, before, remaining)
		if err != nil {
			return result, mapStoreError(err, "ticket", "")
		}
		for i := range candidates {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			s.archiveOne(ctx, &candidates[i], &result)
		}
	}
	return result, nil
}

func (s *TicketService) archiveOne(ctx context.Context, candidate *domain.Ticket, result *ArchiveResult) {
	if err := candidate.Archive(s.clock()); err != nil {
		result.Skipped++
		return
	}
	if err := s.store.Tickets().Update(ctx, candidate); err != nil {
		s.logger.Warn("archive ticket failed", zap.String("ticket_id", candidate.ID), zap.Error(err))
		result.Skipped++
		return
	}
	result.Archived++
	s.publishEvent(ctx, candidate.ID, SystemActor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus: domain.StatusResolvido,
		NewStatus: candidate.Status,
	})
}

// AppendMessage stores a message. An agent reply advances an unworked ticket to
// em_atendimento in the same transaction.
func (s *TicketService) AppendMessage(ctx context.Context, actor Actor, ticketID string, input MessageInput) (*AppendMessageResult, error) {
	msgType, err := domain.ParseMessageType(string(input.Type))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "message_type"})
	}
	body := strings.TrimSpace(s.sanitizer.Sanitize(input.Body))
	if body == "" {
		return nil, apperrors.NewValidationError("message body is empty", map[string]any{"field": "body"})
	}
	channel := strings.TrimSpace(input.Channel)
	if channel == "" {
		channel = domain.DefaultChannel
	}

	now := s.clock()
	msg := &domain.TicketMessage{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		MessageType: msgType,
		AuthorEmail: actor.String(),
		Body:        body,
		Channel:     channel,
		CreatedAt:   now,
	}

	var (
		ticket    *domain.Ticket
		oldStatus domain.TicketStatus
		replied   bool
		firstSet  bool
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		t, err := s.loadTicket(ctx, tx.Tickets(), ticketID)
		if err != nil {
			return err
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return mapStoreError(err, "message", msg.ID)
		}
		oldStatus = t.Status
		if msgType == domain.MessageTypeAgentReply {
			hadFirst := t.FirstResponseAt != nil
			if t.RecordFirstReply(now) {
				if err := tx.Tickets().Update(ctx, t); err != nil {
					return mapStoreError(err, "ticket", t.ID)
				}
				replied = true
				firstSet = !hadFirst
			}
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketMessageAdded, events.TicketMessageAddedPayload{
		MessageID:   msg.ID,
		MessageType: msg.MessageType,
		AuthorEmail: msg.AuthorEmail,
		Channel:     msg.Channel,
		BodyPreview: stringPreview(msg.Body, bodyPreviewRunes),
	})
	if replied {
		s.publishEvent(ctx, ticket.ID, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	if firstSet {
		s.publishEvent(ctx, ticket.ID, actor, events.EventTicketFirstResponse, events.TicketFirstResponsePayload{
			FirstResponseAt: *ticket.FirstResponseAt,
		})
	}
	return &AppendMessageResult{Message: msg, Ticket: ticket, FirstReplied: replied}, nil
}

// ListMessages returns the conversation oldest first.
func (s *TicketService) ListMessages(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketMessage, error) {
	if _, err := s.loadTicket(ctx, s.store.Tickets(), ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.store.Messages().ListByTicket(ctx, ticketID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, mapStoreError(err, "message", "")
	}
	return msgs, nil
}

// AddAttachment appends a file reference to the ticket.
func (s *TicketService) AddAttachment(ctx context.Context, actor Actor, ticketID string, att domain.Attachment) (*domain.Ticket, error) {
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		return t.AddAttachment(att, s.clock())
	})
	if err != nil {
		return nil, err
	}
	added := ticket.Attachments[len(ticket.Attachments)-1]
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketAttachmentChanged, events.TicketAttachmentChangedPayload{
		Action: "added",
		Name:   added.Name,
		URL:    added.URL,
		Count:  len(ticket.Attachments),
	})
	return ticket, nil
}

// RemoveAttachment drops the attachment at index.
func (s *TicketService) RemoveAttachment(ctx context.Context, actor Actor, ticketID string, index int) (*domain.Ticket, error) {
	var removed domain.Attachment
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		var err error
		removed, err = t.RemoveAttachment(index, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketAttachmentChanged, events.TicketAttachmentChangedPayload{
		Action: "removed",
		Name:   removed.Name,
		URL:    removed.URL,
		Count:  len(ticket.Attachments),
	})
	return ticket, nil
}

// ListAtRisk returns open tickets whose deadline is close, soonest first.
func (s *TicketService) ListAtRisk(ctx context.Context, limit int) ([]TicketDetails, error) {
	limit = clampLimit(limit)
	now := s.clock()
	var out []TicketDetails
	err := s.scan(ctx, repository.TicketFilter{Statuses: openStatuses()}, func(t *domain.Ticket) {
		view := sla.Evaluate(t.SLAResolutionDeadline, t.SLABreached, now, s.atRiskWindow)
		if view.AtRisk {
			out = append(out, TicketDetails{Ticket: t, SLA: view, Fields: t.StructuredFields()})
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SLA.Deadline.Before(*out[j].SLA.Deadline)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Audit walks every ticket and reports stored state that breaks lifecycle rules.
func (s *TicketService) Audit(ctx context.Context) ([]AuditFinding, error) {
	var findings []AuditFinding
	err := s.scan(ctx, repository.TicketFilter{}, func(t *domain.Ticket) {
		for _, problem := range auditTicket(t) {
			findings = append(findings, AuditFinding{TicketID: t.ID, Problem: problem})
		}
	})
	return findings, err
}

func auditTicket(t *domain.Ticket) []string {
	var problems []string
	if !t.Family.Allows(t.Status) {
		problems = append(problems, "status "+string(t.Status)+" not valid for family "+string(t.Family))
	}
	if t.ReopenedCount != len(t.ReopenHistory) {
		problems = append(problems, "reopened_count does not match reopen_history")
	}
	if t.Status.IsResolved() && t.ResolvedAt == nil {
		problems = append(problems, "resolved ticket without resolved_at")
	}
	if !t.Status.IsResolved() && t.ResolvedAt != nil {
		problems = append(problems, "open ticket with resolved_at")
	}
	if t.Status == domain.StatusNovo && t.AgentID != nil {
		problems = append(problems, "novo ticket has an agent")
	}
	return problems
}

func (s *TicketService) scan(ctx context.Context, filter repository.TicketFilter, fn func(*domain.Ticket)) error {
	filter.Limit = scanPageSize
	for offset := 0; ; offset += scanPageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		filter.Offset = offset
		page, err := s.store.Tickets().List(ctx, filter)
		if err != nil {
			return mapStoreError(err, "ticket", "")
		}
		for i := range page {
			fn(&page[i])
		}
		if len(page) < scanPageSize {
			return nil
		}
	}
}

func openStatuses() []domain.TicketStatus {
	return []domain.TicketStatus{
		domain.StatusNovo,
		domain.StatusAtribuido,
		domain.StatusEmAtendimento,
		domain.StatusAguardandoCliente,
		domain.StatusAguardandoTerceiro,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
