package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketMessageType differentiates replies, notes and system entries.
type TicketMessageType string

const (
	MessageTypeAgentReply    TicketMessageType = "agent_reply"
	MessageTypeCustomerReply TicketMessageType = "customer_reply"
	MessageTypeInternalNote  TicketMessageType = "internal_note"
	MessageTypeSystemEvent   TicketMessageType = "system_event"
)

// ParseMessageType validates a raw message type.
func ParseMessageType(raw string) (TicketMessageType, error) {
	t := TicketMessageType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case MessageTypeAgentReply, MessageTypeCustomerReply, MessageTypeInternalNote, MessageTypeSystemEvent:
		return t, nil
	}
	return "", fmt.Errorf("unknown message type %q", raw)
}

// DefaultChannel is recorded when a message arrives without one.
const DefaultChannel = "web"

// TicketMessage is one append-only entry of a ticket conversation.
type TicketMessage struct {
	ID          string
	TicketID    string
	MessageType TicketMessageType
	AuthorEmail string
	Body        string
	Channel     string
	CreatedAt   time.Time
}
