package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/focus.space/internal/platform/id"
	"github.com/louisbranch/focus.space/internal/services/timer/domain"
)

// LogNotifier renders session progress to the process log. It stands in for
// an external chat or push transport and exercises the same handle contract:
// Send mints a handle, Edit addresses a previous send.
type LogNotifier struct{}

// Send logs the render and returns a fresh handle for later edits.
func (LogNotifier) Send(_ context.Context, userID string, view domain.RenderView) (string, error) {
	handle, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("mint render handle: %w", err)
	}
	log.Printf("render send user_id=%s handle=%s %s", userID, handle, formatView(view))
	return handle, nil
}

// Edit logs an update against a previously issued handle.
func (LogNotifier) Edit(_ context.Context, userID string, renderHandle string, view domain.RenderView) error {
	log.Printf("render edit user_id=%s handle=%s %s", userID, renderHandle, formatView(view))
	return nil
}

func formatView(view domain.RenderView) string {
	switch {
	case view.Completed:
		return fmt.Sprintf("state=%s completed=true planned_minutes=%d", view.State, view.PlannedMinutes)
	case view.BreakOver:
		return fmt.Sprintf("state=%s break_over=true", view.State)
	default:
		return fmt.Sprintf("state=%s planned_minutes=%d remaining=%s progress=%d%%",
			view.State, view.PlannedMinutes, view.Remaining.Round(time.Second), view.ProgressPercent)
	}
}
