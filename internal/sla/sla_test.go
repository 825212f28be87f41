package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/atendimento-service/internal/domain"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		deadline   *time.Time
		breached   bool
		wantAtRisk bool
		wantBreach bool
	}{
		{name: "three hours left is at risk", deadline: at(3 * time.Hour), wantAtRisk: true},
		{name: "five hours left is fine", deadline: at(5 * time.Hour)},
		{name: "exactly the window is not at risk", deadline: at(4 * time.Hour)},
		{name: "deadline now is not at risk", deadline: at(0)},
		{name: "past deadline without flag is not breached", deadline: at(-time.Hour)},
		{name: "flag is reported as stored", deadline: at(10 * time.Hour), breached: true, wantBreach: true},
		{name: "no deadline", deadline: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(tt.deadline, tt.breached, now, DefaultAtRiskWindow)
			assert.Equal(t, tt.wantAtRisk, v.AtRisk)
			assert.Equal(t, tt.wantBreach, v.Breached)
		})
	}
}

func TestEvaluate_Remaining(t *testing.T) {
	v := Evaluate(at(3*time.Hour), false, now, 0)
	assert.Equal(t, 3*time.Hour, v.Remaining)
	assert.True(t, v.AtRisk, "zero window falls back to the default")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte("resolution_hours:\n  P1: 2\n  p3: 36.5\n"))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, p.Resolution[domain.PriorityP1])
	assert.Equal(t, 8*time.Hour, p.Resolution[domain.PriorityP2])
	assert.Equal(t, 36*time.Hour+30*time.Minute, p.Resolution[domain.PriorityP3])

	_, err = ParsePolicy([]byte("resolution_hours:\n  P9: 2\n"))
	assert.Error(t, err)
	_, err = ParsePolicy([]byte("resolution_hours:\n  P2: 0\n"))
	assert.Error(t, err)
	_, err = ParsePolicy([]byte("resolution_hours: [oops"))
	assert.Error(t, err)
}

func TestDeadlineFor(t *testing.T) {
	p := DefaultPolicy()
	d := p.DeadlineFor(domain.PriorityP4, now)
	require.NotNil(t, d)
	assert.Equal(t, now.Add(72*time.Hour), *d)
	assert.Nil(t, p.DeadlineFor(domain.TicketPriority("??"), now))
}

func TestLoadPolicy_EmptyPathUsesDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}
