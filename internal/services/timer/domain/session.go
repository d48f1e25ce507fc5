package domain

import "time"

// SessionState is the lifecycle state of one user's focus session.
type SessionState int

const (
	// StateIdle means no session is in flight.
	StateIdle SessionState = iota
	// StateRunning means a session is counting down.
	StateRunning
	// StatePaused means a running session is suspended; the planned
	// completion instant is unaffected.
	StatePaused
)

// String returns the lowercase state label used in logs.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Session is one user's focus timer record.
//
// A completed session is an event, never a stored state: completion and stop
// both reset the record to idle. PauseStart is non-nil exactly while the
// session is paused.
type Session struct {
	UserID string
	State  SessionState
	// StartTime is set on start and zero after stop or completion.
	StartTime time.Time
	// PlannedMinutes is fixed at start and immutable for the session's
	// lifetime.
	PlannedMinutes int
	// PauseStart marks the beginning of the in-flight pause segment.
	PauseStart *time.Time
	// TotalPaused accumulates closed pause segments; monotonically
	// non-decreasing within a session.
	TotalPaused time.Duration
	// PausedMinutes is TotalPaused in fractional minutes, used when
	// subtracting pauses from the planned duration at completion.
	PausedMinutes float64
	// RenderHandle references the outward-facing progress display.
	RenderHandle string
	// Generation increments on every start; triggers scheduled under an
	// older generation are dropped by the guard even if cancellation missed
	// them.
	Generation uint64
}

// PlannedEnd is the wall-clock completion instant. Pauses never move it.
func (s Session) PlannedEnd() time.Time {
	if s.StartTime.IsZero() {
		return time.Time{}
	}
	return s.StartTime.Add(time.Duration(s.PlannedMinutes) * time.Minute)
}

// RenderView is the structured progress snapshot pushed to the notification
// port. Formatting belongs to the external chat layer.
type RenderView struct {
	State           SessionState
	PlannedMinutes  int
	Remaining       time.Duration
	ProgressPercent int
	EndsAt          time.Time
	// Completed marks the one-time completion render.
	Completed bool
	// BreakOver marks the post-session break reminder render.
	BreakOver bool
}

// StartResult reports the outcome of a successful start.
type StartResult struct {
	RenderHandle string
	EndsAt       time.Time
	Generation   uint64
}
