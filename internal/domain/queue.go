package domain

import "time"

// Queue is a routing bucket tickets are assigned to, owned by a team.
type Queue struct {
	ID          string
	Name        string
	Team        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
