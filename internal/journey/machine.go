package journey

import (
	"time"

	"github.com/Azee177/jianli/internal/shared/metrics"
	"github.com/Azee177/jianli/internal/shared/telemetry"
)

// Machine applies stage transitions to sessions.
type Machine struct {
	Now func() time.Time
}

// Transition moves s to the requested stage iff the edge is legal and records
// it in history. An illegal request leaves s untouched and returns false.
func (m Machine) Transition(s *Session, to Stage, action string) bool {
	from := s.Stage
	if !CanTransition(from, to) {
		metrics.IncJourneyTransition(string(to), false)
		telemetry.Warn("journey.transition_rejected", map[string]any{
			"session_id": s.ID,
			"from":       string(from),
			"to":         string(to),
			"action":     action,
		})
		return false
	}
	now := m.now()
	s.Stage = to
	s.UpdatedAt = now
	if action == "" {
		action = "transition"
	}
	s.Record(action, string(from)+"->"+string(to), now)
	metrics.IncJourneyTransition(string(to), true)
	telemetry.Info("journey.transition", map[string]any{
		"session_id": s.ID,
		"from":       string(from),
		"to":         string(to),
		"action":     action,
	})
	return true
}

func (m Machine) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}
