package domain

import "time"

// AgentChange is an immutable agent_history entry.
type AgentChange struct {
	PreviousAgentID *string   `json:"previous_agent_id"`
	NewAgentID      string    `json:"new_agent_id"`
	ChangedAt       time.Time `json:"changed_at"`
	ChangedBy       string    `json:"changed_by"`
}

// QueueChange is an immutable queue_history entry.
type QueueChange struct {
	PreviousQueueID *string   `json:"previous_queue_id"`
	NewQueueID      string    `json:"new_queue_id"`
	ChangedAt       time.Time `json:"changed_at"`
	ChangedBy       string    `json:"changed_by"`
}

// ReopenRecord is an immutable reopen_history entry.
type ReopenRecord struct {
	ReopenedAt     time.Time    `json:"reopened_at"`
	ReopenedBy     string       `json:"reopened_by"`
	PreviousStatus TicketStatus `json:"previous_status"`
}

// Attachment describes an uploaded file linked to a ticket.
type Attachment struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploaded_at"`
}
