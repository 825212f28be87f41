package sla

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

// Policy maps priorities to the resolution time granted at creation.
type Policy struct {
	Resolution map[domain.TicketPriority]time.Duration
}

type policyFile struct {
	ResolutionHours map[string]float64 `yaml:"resolution_hours"`
}

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() Policy {
	return Policy{Resolution: map[domain.TicketPriority]time.Duration{
		domain.PriorityP1: 4 * time.Hour,
		domain.PriorityP2: 8 * time.Hour,
		domain.PriorityP3: 24 * time.Hour,
		domain.PriorityP4: 72 * time.Hour,
	}}
}

// LoadPolicy reads a YAML policy. Priorities missing from the file keep their defaults.
//
//	resolution_hours:
//	  P1: 2
//	  P3: 48
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read sla policy: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy decodes YAML policy bytes over the defaults.
func ParsePolicy(raw []byte) (Policy, error) {
	policy := DefaultPolicy()
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Policy{}, fmt.Errorf("decode sla policy: %w", err)
	}
	for key, hours := range file.ResolutionHours {
		priority, err := domain.ParsePriority(key)
		if err != nil || key == "" {
			return Policy{}, fmt.Errorf("sla policy: unknown priority %q", key)
		}
		if hours <= 0 {
			return Policy{}, fmt.Errorf("sla policy: %s hours must be positive", priority)
		}
		policy.Resolution[priority] = time.Duration(hours * float64(time.Hour))
	}
	return policy, nil
}

// DeadlineFor returns the resolution deadline for a ticket opened at createdAt.
func (p Policy) DeadlineFor(priority domain.TicketPriority, createdAt time.Time) *time.Time {
	d, ok := p.Resolution[priority]
	if !ok || d <= 0 {
		return nil
	}
	deadline := createdAt.Add(d)
	return &deadline
}
