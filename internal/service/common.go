package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/observability"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// Actor identifies who performs a lifecycle operation.
type Actor struct {
	AgentID string
	Email   string
}

// String is the value written to changed_by / reopened_by.
func (a Actor) String() string {
	if a.Email != "" {
		return a.Email
	}
	return a.AgentID
}

// SystemActor is used by background jobs and public callbacks.
var SystemActor = Actor{Email: "system"}

// lifecycle holds what every ticket-mutating service shares.
type lifecycle struct {
	store      repository.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func newLifecycle(store repository.Store, dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger, now func() time.Time) lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return lifecycle{store: store, dispatcher: dispatcher, metrics: metrics, logger: logger, now: now}
}

func (l *lifecycle) clock() time.Time {
	return l.now().UTC()
}

func (l *lifecycle) loadTicket(ctx context.Context, tickets repository.TicketRepository, id string) (*domain.Ticket, error) {
	ticket, err := tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "ticket", id)
	}
	return ticket, nil
}

// mutate loads the ticket, applies fn and writes it back under the version check.
// Nothing is retried: a concurrent change surfaces as a conflict.
func (l *lifecycle) mutate(ctx context.Context, id string, fn func(t *domain.Ticket) error) (*domain.Ticket, error) {
	tickets := l.store.Tickets()
	ticket, err := l.loadTicket(ctx, tickets, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ticket); err != nil {
		return nil, mapDomainError(err)
	}
	if err := tickets.Update(ctx, ticket); err != nil {
		return nil, mapStoreError(err, "ticket", id)
	}
	return ticket, nil
}

func (l *lifecycle) publishEvent(ctx context.Context, ticketID string, actor Actor, eventType events.EventType, payload any) {
	l.metrics.RecordTransition(string(eventType))
	l.logger.Info("ticket lifecycle event",
		zap.String("event_type", string(eventType)),
		zap.String("ticket_id", ticketID),
		zap.String("actor", actor.String()))
	if l.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor.String(),
		Timestamp: l.clock(),
		Payload:   payload,
	}
	if err := l.dispatcher.Publish(ctx, event); err != nil {
		l.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func mapStoreError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("ticket was modified by someone else; reload and try again", map[string]any{"ticket_id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(fmt.Sprintf("%s already exists", resource), nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de
	}
	return apperrors.NewRemoteFailure("store "+resource, err)
}

func mapDomainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidTransition):
		return apperrors.NewInvalidTransition(err.Error(), nil)
	case errors.Is(err, domain.ErrNoChange):
		return apperrors.NewConflict("nothing to change", nil)
	case errors.Is(err, domain.ErrAlreadySigned),
		errors.Is(err, domain.ErrSignatureMethodConflict),
		errors.Is(err, domain.ErrSignatureNotPending):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, domain.ErrCompletionReasonRequired),
		errors.Is(err, domain.ErrInvalidAttachment),
		errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrUnknownFamily),
		errors.Is(err, domain.ErrUnknownPriority):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, domain.ErrAttachmentNotFound):
		return apperrors.NewNotFound("attachment", nil)
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return de
	}
	return apperrors.NewInternalError(err)
}

func mapFunctionError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return apperrors.NewRemoteFailure("function "+name, err)
}

func stringPreview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
