package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/louisbranch/focus.space/internal/services/timer/domain"
)

func TestScheduleOnceFires(t *testing.T) {
	t.Parallel()

	timers := New()
	defer timers.Stop()

	fired := make(chan struct{})
	timers.ScheduleOnce("user-1", domain.TriggerCompletion, 1, 10*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot trigger did not fire")
	}

	// The entry removes itself after firing.
	deadline := time.Now().Add(time.Second)
	for timers.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("entries = %d, want 0 after fire", timers.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScheduleRecurringFiresRepeatedly(t *testing.T) {
	t.Parallel()

	timers := New()
	defer timers.Stop()

	var fires atomic.Int64
	timers.ScheduleRecurring("user-1", domain.TriggerTick, 1, 10*time.Millisecond, func() {
		fires.Add(1)
	})

	deadline := time.Now().Add(2 * time.Second)
	for fires.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("fires = %d, want at least 3", fires.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if !timers.Cancel("user-1", domain.TriggerTick) {
		t.Fatal("cancel reported no entry")
	}
	settled := fires.Load()
	time.Sleep(100 * time.Millisecond)
	if got := fires.Load(); got > settled+1 {
		t.Fatalf("fires kept growing after cancel: %d then %d", settled, got)
	}
}

func TestScheduleReplacesExistingEntry(t *testing.T) {
	t.Parallel()

	timers := New()
	defer timers.Stop()

	stale := make(chan struct{}, 1)
	timers.ScheduleOnce("user-1", domain.TriggerCompletion, 1, 50*time.Millisecond, func() {
		stale <- struct{}{}
	})

	fresh := make(chan struct{})
	timers.ScheduleOnce("user-1", domain.TriggerCompletion, 2, 10*time.Millisecond, func() {
		close(fresh)
	})

	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement trigger did not fire")
	}
	select {
	case <-stale:
		t.Fatal("replaced trigger fired")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancelStopsPendingEntry(t *testing.T) {
	t.Parallel()

	timers := New()
	defer timers.Stop()

	fired := make(chan struct{}, 1)
	timers.ScheduleOnce("user-1", domain.TriggerBreakReminder, 1, 50*time.Millisecond, func() {
		fired <- struct{}{}
	})

	if !timers.Cancel("user-1", domain.TriggerBreakReminder) {
		t.Fatal("cancel reported no entry")
	}
	if timers.Cancel("user-1", domain.TriggerBreakReminder) {
		t.Fatal("second cancel reported an entry")
	}

	select {
	case <-fired:
		t.Fatal("cancelled trigger fired")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancelUserRemovesAllKinds(t *testing.T) {
	t.Parallel()

	timers := New()
	defer timers.Stop()

	timers.ScheduleRecurring("user-1", domain.TriggerTick, 1, time.Hour, func() {})
	timers.ScheduleOnce("user-1", domain.TriggerCompletion, 1, time.Hour, func() {})
	timers.ScheduleOnce("user-2", domain.TriggerCompletion, 1, time.Hour, func() {})

	if got := timers.CancelUser("user-1"); got != 2 {
		t.Fatalf("cancelled = %d, want 2", got)
	}
	if got := timers.Len(); got != 1 {
		t.Fatalf("entries = %d, want user-2's entry left", got)
	}
}

func TestStopRejectsFurtherScheduling(t *testing.T) {
	t.Parallel()

	timers := New()
	timers.ScheduleOnce("user-1", domain.TriggerCompletion, 1, time.Hour, func() {})
	timers.Stop()

	if got := timers.Len(); got != 0 {
		t.Fatalf("entries = %d, want 0 after stop", got)
	}

	timers.ScheduleOnce("user-1", domain.TriggerCompletion, 2, time.Millisecond, func() {
		t.Error("scheduled after stop")
	})
	if got := timers.Len(); got != 0 {
		t.Fatalf("entries = %d, want scheduling rejected after stop", got)
	}
	time.Sleep(50 * time.Millisecond)
}
