package dto

import (
	"time"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the access token.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Agent       AgentResponse `json:"agent"`
}

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=AGENT SUPERVISOR ADMIN"`
}

// SetActiveRequest toggles an agent or queue.
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AgentResponse represents an agent.
type AgentResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.AgentRole `json:"role"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_date"`
}

// CreateQueueRequest payload.
type CreateQueueRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Team        string `json:"team" validate:"max=120"`
	Description string `json:"description"`
}

// QueueResponse represents a queue.
type QueueResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Team        string    `json:"team"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_date"`
}
