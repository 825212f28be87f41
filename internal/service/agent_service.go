package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/atendimento-service/internal/auth"
	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/repository"
	apperrors "github.com/spec-kit/atendimento-service/pkg/util/errorutil"
)

// AgentService manages agents and queues.
type AgentService struct {
	agents     repository.AgentRepository
	queues     repository.QueueRepository
	bcryptCost int
	now        func() time.Time
}

// AgentCreateInput describes a new agent account.
type AgentCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.AgentRole
}

// NewAgentService constructs the service.
func NewAgentService(store repository.Store, bcryptCost int) *AgentService {
	return &AgentService{
		agents:     store.Agents(),
		queues:     store.Queues(),
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// CreateAgent adds a new agent account.
func (s *AgentService) CreateAgent(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if input.Role == "" {
		input.Role = domain.AgentRoleAgent
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	if _, err := s.agents.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("agent email already exists", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, mapStoreError(err, "agent", "")
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now().UTC()
	agent := &domain.Agent{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, mapStoreError(err, "agent", agent.ID)
	}
	return agent, nil
}

// ListAgents lists agents matching filter.
func (s *AgentService) ListAgents(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	filter.Limit = clampLimit(filter.Limit)
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, mapStoreError(err, "agent", "")
	}
	return agents, nil
}

// SetAgentActive enables or disables an agent. Inactive agents cannot log in or be assigned.
func (s *AgentService) SetAgentActive(ctx context.Context, agentID string, active bool) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, mapStoreError(err, "agent", agentID)
	}
	agent.Active = active
	agent.UpdatedAt = s.now().UTC()
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, mapStoreError(err, "agent", agentID)
	}
	return agent, nil
}

// CreateQueue creates an active queue.
func (s *AgentService) CreateQueue(ctx context.Context, name, team, description string) (*domain.Queue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("queue name is required", map[string]any{"field": "name"})
	}
	now := s.now().UTC()
	queue := &domain.Queue{
		ID:          uuid.NewString(),
		Name:        name,
		Team:        strings.TrimSpace(team),
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.queues.Create(ctx, queue); err != nil {
		return nil, mapStoreError(err, "queue", queue.ID)
	}
	return queue, nil
}

// ListQueues returns queues, optionally including inactive ones.
func (s *AgentService) ListQueues(ctx context.Context, includeInactive bool) ([]domain.Queue, error) {
	queues, err := s.queues.List(ctx, !includeInactive)
	if err != nil {
		return nil, mapStoreError(err, "queue", "")
	}
	return queues, nil
}

// SetQueueActive enables or disables a queue. Inactive queues reject transfers.
func (s *AgentService) SetQueueActive(ctx context.Context, queueID string, active bool) (*domain.Queue, error) {
	queue, err := s.queues.GetByID(ctx, queueID)
	if err != nil {
		return nil, mapStoreError(err, "queue", queueID)
	}
	queue.IsActive = active
	queue.UpdatedAt = s.now().UTC()
	if err := s.queues.Update(ctx, queue); err != nil {
		return nil, mapStoreError(err, "queue", queueID)
	}
	return queue, nil
}
