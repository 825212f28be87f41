package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent      AgentRole = "AGENT"
	AgentRoleSupervisor AgentRole = "SUPERVISOR"
	AgentRoleAdmin      AgentRole = "ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r AgentRole) Valid() bool {
	switch r {
	case AgentRoleAgent, AgentRoleSupervisor, AgentRoleAdmin:
		return true
	}
	return false
}

// Agent is a staff user that can be assigned tickets.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
