package domain

import (
	"fmt"
	"strings"
)

// TicketPriority enumerates SLA urgency. P1 is the most urgent.
type TicketPriority string

const (
	PriorityP1 TicketPriority = "P1"
	PriorityP2 TicketPriority = "P2"
	PriorityP3 TicketPriority = "P3"
	PriorityP4 TicketPriority = "P4"
)

// DefaultPriority is applied when a ticket is opened without one.
const DefaultPriority = PriorityP3

var priorityRank = map[TicketPriority]int{
	PriorityP1: 1,
	PriorityP2: 2,
	PriorityP3: 3,
	PriorityP4: 4,
}

// ParsePriority validates a raw priority, accepting lower case.
func ParsePriority(raw string) (TicketPriority, error) {
	p := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if p == "" {
		return DefaultPriority, nil
	}
	if _, ok := priorityRank[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPriority, raw)
	}
	return p, nil
}

// Rank returns 1 for P1 up to 4 for P4, 0 for unknown values.
func (p TicketPriority) Rank() int {
	return priorityRank[p]
}

// MoreUrgentThan compares two priorities by rank.
func (p TicketPriority) MoreUrgentThan(other TicketPriority) bool {
	return p.Rank() != 0 && (other.Rank() == 0 || p.Rank() < other.Rank())
}
