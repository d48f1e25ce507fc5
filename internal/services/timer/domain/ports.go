package domain

import (
	"context"
	"time"
)

// TriggerKind distinguishes the scheduled callbacks owned by one session.
type TriggerKind string

const (
	// TriggerTick drives periodic progress renders.
	TriggerTick TriggerKind = "tick"
	// TriggerCompletion fires at the originally planned end instant.
	TriggerCompletion TriggerKind = "completion"
	// TriggerBreakReminder fires once after a completed session's break.
	TriggerBreakReminder TriggerKind = "break_reminder"
)

// Scheduler registers time-based callbacks keyed per user and kind.
//
// Scheduling over an existing user/kind entry replaces it. Cancellation is
// best-effort and advisory: an in-flight callback may still run after Cancel
// returns, and the generation guard in the state machine is the binding
// correctness mechanism.
type Scheduler interface {
	ScheduleOnce(userID string, kind TriggerKind, generation uint64, delay time.Duration, fire func())
	ScheduleRecurring(userID string, kind TriggerKind, generation uint64, interval time.Duration, fire func())
	Cancel(userID string, kind TriggerKind) bool
	CancelUser(userID string) int
}

// Notifier is the outbound notification port. Both calls are best-effort:
// failures are logged by the caller and never roll back session state.
type Notifier interface {
	Send(ctx context.Context, userID string, view RenderView) (renderHandle string, err error)
	Edit(ctx context.Context, userID string, renderHandle string, view RenderView) error
}

// SessionCommitter receives committed session minutes for aggregation.
type SessionCommitter interface {
	CommitSession(ctx context.Context, userID string, actualMinutes int) error
}
