package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/functions"
	"github.com/spec-kit/atendimento-service/internal/observability"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// AssignmentService handles agent assignment and queue transfers.
type AssignmentService struct {
	lifecycle
	functions functions.Invoker
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Functions picks the next agent for auto-assign. When nil or not configured
	// the pick falls back to every active AGENT-role agent; agents carry no queue membership.
	Functions functions.Invoker
	Now       func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		lifecycle: newLifecycle(deps.Store, deps.Dispatcher, deps.Metrics, deps.Logger, deps.Now),
		functions: deps.Functions,
	}
}

// AssignAgent sets the ticket's agent and records the change. Assigning the
// current agent again is reported as a conflict and writes nothing.
func (s *AssignmentService) AssignAgent(ctx context.Context, actor Actor, ticketID, agentID string) (*domain.Ticket, error) {
	agent, err := s.store.Agents().GetByID(ctx, agentID)
	if err != nil {
		return nil, mapStoreError(err, "agent", agentID)
	}
	if !agent.Active {
		return nil, apperrors.NewConflict("agent inactive", map[string]any{"agent_id": agentID})
	}

	var (
		previous  *string
		oldStatus domain.TicketStatus
	)
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		previous = t.AgentID
		oldStatus = t.Status
		return t.AssignAgent(agent.ID, actor.String(), s.clock())
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketAgentAssigned, events.TicketAgentAssignedPayload{
		PreviousAgentID: previous,
		NewAgentID:      agent.ID,
		Status:          ticket.Status,
	})
	if oldStatus != ticket.Status {
		s.publishEvent(ctx, ticket.ID, actor, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	return ticket, nil
}

// AutoAssign asks the round-robin function for the next agent and assigns it.
func (s *AssignmentService) AutoAssign(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, s.store.Tickets(), ticketID)
	if err != nil {
		return nil, err
	}

	agentID, err := s.pickAgent(ctx, ticket)
	if err != nil {
		return nil, err
	}
	return s.AssignAgent(ctx, actor, ticketID, agentID)
}

// pickAgent asks the round-robin function first, then falls back to a stable
// choice among all active AGENT-role agents other than the current assignee.
func (s *AssignmentService) pickAgent(ctx context.Context, ticket *domain.Ticket) (string, error) {
	if s.functions != nil {
		agentID, err := functions.AssignRoundRobin(ctx, s.functions, ticket.ID, ticket.QueueID)
		if err == nil {
			return agentID, nil
		}
		if !errors.Is(err, functions.ErrNotConfigured) {
			return "", mapFunctionError(functions.FnAssignRoundRobin, err)
		}
	}

	active := true
	agents, err := s.store.Agents().List(ctx, repository.AgentFilter{
		Role:   ptrRole(domain.AgentRoleAgent),
		Active: &active,
		Limit:  1000,
	})
	if err != nil {
		return "", mapStoreError(err, "agent", "")
	}
	if ticket.AgentID != nil {
		agents = withoutAgent(agents, *ticket.AgentID)
	}
	if len(agents) == 0 {
		return "", apperrors.NewConflict("no eligible agent", map[string]any{"ticket_id": ticket.ID})
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt.Before(agents[j].CreatedAt)
	})
	return agents[selectIndex(ticket.ID, len(agents))].ID, nil
}

// TransferQueue moves the ticket to another active queue. Status is untouched.
func (s *AssignmentService) TransferQueue(ctx context.Context, actor Actor, ticketID, queueID string) (*domain.Ticket, error) {
	queue, err := s.store.Queues().GetByID(ctx, queueID)
	if err != nil {
		return nil, mapStoreError(err, "queue", queueID)
	}
	if !queue.IsActive {
		return nil, apperrors.NewConflict("queue inactive", map[string]any{"queue_id": queueID})
	}

	var previous *string
	ticket, err := s.mutate(ctx, ticketID, func(t *domain.Ticket) error {
		previous = t.QueueID
		return t.TransferQueue(queue.ID, actor.String(), s.clock())
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, ticket.ID, actor, events.EventTicketQueueTransferred, events.TicketQueueTransferredPayload{
		PreviousQueueID: previous,
		NewQueueID:      queue.ID,
	})
	return ticket, nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}

func withoutAgent(agents []domain.Agent, id string) []domain.Agent {
	out := agents[:0]
	for _, a := range agents {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func ptrRole(r domain.AgentRole) *domain.AgentRole {
	return &r
}
