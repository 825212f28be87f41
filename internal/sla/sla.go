// Package sla derives the SLA view shown next to a ticket and the resolution
// deadline applied when a ticket is opened.
package sla

import "time"

// DefaultAtRiskWindow is how close to the deadline a ticket is flagged.
const DefaultAtRiskWindow = 4 * time.Hour

// View is the presentation state of a ticket SLA timer.
type View struct {
	Deadline  *time.Time    `json:"deadline,omitempty"`
	AtRisk    bool          `json:"at_risk"`
	Breached  bool          `json:"breached"`
	Remaining time.Duration `json:"remaining_ns"`
}

// Evaluate is a pure function of the stored deadline and breach flag. at_risk holds
// only while the deadline is strictly ahead and closer than window. Breached is the
// stored flag; it is never derived from the clock.
func Evaluate(deadline *time.Time, breached bool, now time.Time, window time.Duration) View {
	if window <= 0 {
		window = DefaultAtRiskWindow
	}
	v := View{Deadline: deadline, Breached: breached}
	if deadline == nil {
		return v
	}
	remaining := deadline.Sub(now)
	v.Remaining = remaining
	v.AtRisk = remaining > 0 && remaining < window
	return v
}
