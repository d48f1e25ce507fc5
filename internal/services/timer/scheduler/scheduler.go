// Package scheduler provides the in-process trigger scheduler backing the
// session state machine. Entries are keyed per user and kind, scheduling over
// an existing entry replaces it, and cancellation is best-effort: callbacks
// already in flight are not awaited.
package scheduler

import (
	"sync"
	"time"

	"github.com/louisbranch/focus.space/internal/services/timer/domain"
)

type entryKey struct {
	userID string
	kind   domain.TriggerKind
}

type entry struct {
	generation uint64
	stop       func()
}

// Timers schedules trigger callbacks on the process clock.
type Timers struct {
	mu      sync.Mutex
	entries map[entryKey]*entry
	closed  bool
}

// New constructs an empty scheduler.
func New() *Timers {
	return &Timers{entries: make(map[entryKey]*entry)}
}

// ScheduleOnce registers a one-shot callback after delay, replacing any
// existing entry for the user and kind. The entry removes itself when it
// fires.
func (t *Timers) ScheduleOnce(userID string, kind domain.TriggerKind, generation uint64, delay time.Duration, fire func()) {
	if t == nil || fire == nil {
		return
	}
	key := entryKey{userID: userID, kind: kind}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if prev, ok := t.entries[key]; ok {
		prev.stop()
	}

	timer := time.AfterFunc(delay, func() {
		t.remove(key, generation)
		fire()
	})
	t.entries[key] = &entry{
		generation: generation,
		stop:       func() { timer.Stop() },
	}
}

// ScheduleRecurring registers a repeating callback at the given interval,
// replacing any existing entry for the user and kind. It fires until
// cancelled.
func (t *Timers) ScheduleRecurring(userID string, kind domain.TriggerKind, generation uint64, interval time.Duration, fire func()) {
	if t == nil || fire == nil || interval <= 0 {
		return
	}
	key := entryKey{userID: userID, kind: kind}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if prev, ok := t.entries[key]; ok {
		prev.stop()
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fire()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	t.entries[key] = &entry{
		generation: generation,
		stop: func() {
			once.Do(func() {
				ticker.Stop()
				close(done)
			})
		},
	}
}

// Cancel stops and removes the entry for the user and kind. It reports
// whether an entry existed.
func (t *Timers) Cancel(userID string, kind domain.TriggerKind) bool {
	if t == nil {
		return false
	}
	key := entryKey{userID: userID, kind: kind}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.stop()
	delete(t.entries, key)
	return true
}

// CancelUser stops and removes every entry owned by the user, returning the
// number of entries cancelled.
func (t *Timers) CancelUser(userID string) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cancelled := 0
	for key, e := range t.entries {
		if key.userID != userID {
			continue
		}
		e.stop()
		delete(t.entries, key)
		cancelled++
	}
	return cancelled
}

// Stop cancels every entry and rejects further scheduling. Used at shutdown.
func (t *Timers) Stop() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, e := range t.entries {
		e.stop()
		delete(t.entries, key)
	}
}

// Len reports the number of live entries.
func (t *Timers) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// remove drops the entry after a one-shot fires, unless a newer entry already
// replaced it.
func (t *Timers) remove(key entryKey, generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok && e.generation == generation {
		delete(t.entries, key)
	}
}
