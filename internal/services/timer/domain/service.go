package domain

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"
)

var (
	// ErrInvalidDuration indicates a start with out-of-range minutes.
	ErrInvalidDuration = errors.New("session duration is out of range")
	// ErrNoActiveTimer indicates a pause while no session is running.
	ErrNoActiveTimer = errors.New("no active timer to pause")
	// ErrNoPausedTimer indicates a resume while no session is paused.
	ErrNoPausedTimer = errors.New("no paused timer to resume")
	// ErrUserIDRequired indicates a user id is required.
	ErrUserIDRequired = errors.New("user id is required")
	// ErrStoreNotConfigured indicates the service is missing session storage wiring.
	ErrStoreNotConfigured = errors.New("session store is not configured")
	// ErrSchedulerNotConfigured indicates the service is missing scheduler wiring.
	ErrSchedulerNotConfigured = errors.New("scheduler is not configured")
)

// Session duration policy bounds, in minutes.
const (
	DefaultMinSessionMinutes = 1
	DefaultMaxSessionMinutes = 180
)

const (
	defaultTickInterval       = time.Minute
	defaultBreakReminderDelay = 5 * time.Minute
	// commitThreshold is the minimum accounted elapsed time before a stopped
	// session is worth committing to stats.
	commitThreshold = time.Minute
)

// Config tunes session policy and trigger cadence.
type Config struct {
	MinSessionMinutes  int
	MaxSessionMinutes  int
	TickInterval       time.Duration
	BreakReminderDelay time.Duration
}

func (c Config) normalized() Config {
	if c.MinSessionMinutes <= 0 {
		c.MinSessionMinutes = DefaultMinSessionMinutes
	}
	if c.MaxSessionMinutes <= 0 {
		c.MaxSessionMinutes = DefaultMaxSessionMinutes
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.BreakReminderDelay <= 0 {
		c.BreakReminderDelay = defaultBreakReminderDelay
	}
	return c
}

// Service is the per-user focus session state machine.
//
// All mutations for one user are linearized by the store; trigger callbacks
// re-enter through OnTick and OnCompletion and are dropped when their
// generation no longer matches the session.
type Service struct {
	store     *Store
	scheduler Scheduler
	notifier  Notifier
	stats     SessionCommitter
	clock     func() time.Time
	cfg       Config
}

// NewService constructs the session state machine.
func NewService(store *Store, scheduler Scheduler, notifier Notifier, stats SessionCommitter, clock func() time.Time, cfg Config) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		stats:     stats,
		clock:     clock,
		cfg:       cfg.normalized(),
	}
}

// Start begins a new session of the given length.
//
// Any triggers left from a prior generation are cancelled (tolerated if none
// exist), the session is reset under a bumped generation, and a recurring
// tick plus a one-shot completion trigger are scheduled under the new
// generation. An initial render is emitted best-effort.
func (s *Service) Start(ctx context.Context, userID string, minutes int) (StartResult, error) {
	if err := s.ready(); err != nil {
		return StartResult{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return StartResult{}, ErrUserIDRequired
	}
	if minutes < s.cfg.MinSessionMinutes || minutes > s.cfg.MaxSessionMinutes {
		return StartResult{}, ErrInvalidDuration
	}

	var result StartResult
	err := s.store.Update(userID, func(sess *Session) error {
		s.scheduler.Cancel(userID, TriggerTick)
		s.scheduler.Cancel(userID, TriggerCompletion)

		now := s.now()
		sess.Generation++
		generation := sess.Generation
		sess.State = StateRunning
		sess.StartTime = now
		sess.PlannedMinutes = minutes
		sess.PauseStart = nil
		sess.TotalPaused = 0
		sess.PausedMinutes = 0
		sess.RenderHandle = ""

		s.scheduler.ScheduleRecurring(userID, TriggerTick, generation, s.cfg.TickInterval, func() {
			s.OnTick(context.Background(), userID, generation)
		})
		s.scheduler.ScheduleOnce(userID, TriggerCompletion, generation, time.Duration(minutes)*time.Minute, func() {
			s.OnCompletion(context.Background(), userID, generation)
		})

		handle, sendErr := s.notifier.Send(ctx, userID, s.renderView(*sess, now))
		if sendErr != nil {
			log.Printf("session render send failed user_id=%s err=%v", userID, sendErr)
		} else {
			sess.RenderHandle = handle
		}

		result = StartResult{
			RenderHandle: sess.RenderHandle,
			EndsAt:       sess.PlannedEnd(),
			Generation:   generation,
		}
		return nil
	})
	return result, err
}

// Pause suspends a running session.
//
// The completion trigger deliberately stays scheduled at the original
// wall-clock instant: pausing affects the accounted duration, never the
// deadline.
func (s *Service) Pause(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	return s.store.Update(userID, func(sess *Session) error {
		if sess.State != StateRunning {
			return ErrNoActiveTimer
		}
		now := s.now()
		pauseStart := now
		sess.PauseStart = &pauseStart
		sess.State = StatePaused
		s.refreshRender(ctx, userID, sess, now)
		return nil
	})
}

// Resume continues a paused session, folding the closed pause segment into
// the accounted totals.
func (s *Service) Resume(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	return s.store.Update(userID, func(sess *Session) error {
		if sess.State != StatePaused || sess.PauseStart == nil {
			return ErrNoPausedTimer
		}
		now := s.now()
		delta := now.Sub(*sess.PauseStart)
		if delta < 0 {
			delta = 0
		}
		sess.TotalPaused += delta
		sess.PausedMinutes += delta.Minutes()
		sess.PauseStart = nil
		sess.State = StateRunning
		s.refreshRender(ctx, userID, sess, now)
		return nil
	})
}

// Stop ends the session early.
//
// Current-generation triggers are cancelled, the accounted elapsed time is
// committed to stats when it exceeds the one-minute threshold, and the
// session resets to idle. The generation is left unchanged so stray triggers
// that escaped cancellation die on the guard.
func (s *Service) Stop(ctx context.Context, userID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	return s.store.Update(userID, func(sess *Session) error {
		s.scheduler.Cancel(userID, TriggerTick)
		s.scheduler.Cancel(userID, TriggerCompletion)

		if sess.State != StateIdle && !sess.StartTime.IsZero() {
			elapsed := s.now().Sub(sess.StartTime) - sess.TotalPaused
			if elapsed > commitThreshold {
				s.commit(ctx, userID, int(math.Round(elapsed.Minutes())))
			}
		}
		resetToIdle(sess)
		return nil
	})
}

// OnTick is the scheduler re-entry point for the recurring progress trigger.
//
// Stale generations and non-running states are dropped silently; ticks keep
// firing while paused but the render is skipped.
func (s *Service) OnTick(ctx context.Context, userID string, generation uint64) {
	if s.ready() != nil {
		return
	}
	_ = s.store.Update(userID, func(sess *Session) error {
		if sess.Generation != generation || sess.State != StateRunning {
			log.Printf("stale tick dropped user_id=%s generation=%d current_generation=%d state=%s",
				userID, generation, sess.Generation, sess.State)
			return nil
		}
		s.refreshRender(ctx, userID, sess, s.now())
		return nil
	})
}

// OnCompletion is the scheduler re-entry point for the one-shot completion
// trigger.
//
// It is idempotent: a mismatched generation or a non-running state (the user
// stopped first, or a new session superseded this one) is a silent no-op.
// Otherwise the planned duration minus total paused minutes is committed, the
// session resets to idle, a completion render is sent, and a break reminder is
// scheduled after the configured delay.
func (s *Service) OnCompletion(ctx context.Context, userID string, generation uint64) {
	if s.ready() != nil {
		return
	}
	_ = s.store.Update(userID, func(sess *Session) error {
		if sess.Generation != generation || sess.State != StateRunning {
			log.Printf("stale completion dropped user_id=%s generation=%d current_generation=%d state=%s",
				userID, generation, sess.Generation, sess.State)
			return nil
		}

		plannedMinutes := sess.PlannedMinutes
		actualMinutes := int(math.Round(float64(plannedMinutes) - sess.PausedMinutes))
		s.commit(ctx, userID, actualMinutes)
		resetToIdle(sess)

		view := RenderView{
			State:           StateIdle,
			PlannedMinutes:  plannedMinutes,
			ProgressPercent: 100,
			Completed:       true,
		}
		if _, err := s.notifier.Send(ctx, userID, view); err != nil {
			log.Printf("completion render send failed user_id=%s err=%v", userID, err)
		}

		s.scheduler.ScheduleOnce(userID, TriggerBreakReminder, generation, s.cfg.BreakReminderDelay, func() {
			s.OnBreakReminder(context.Background(), userID)
		})
		return nil
	})
}

// OnBreakReminder pushes the post-session break-over notification. It never
// touches session state.
func (s *Service) OnBreakReminder(ctx context.Context, userID string) {
	if s == nil || s.notifier == nil {
		return
	}
	if _, err := s.notifier.Send(ctx, userID, RenderView{State: StateIdle, BreakOver: true}); err != nil {
		log.Printf("break reminder send failed user_id=%s err=%v", userID, err)
	}
}

// RenderState returns the current progress snapshot for pull-style display.
func (s *Service) RenderState(userID string) RenderView {
	if s == nil || s.store == nil {
		return RenderView{State: StateIdle}
	}
	sess := s.store.Snapshot(userID)
	if sess.State == StateIdle {
		return RenderView{State: StateIdle}
	}
	return s.renderView(sess, s.now())
}

// Sweep cancels scheduler entries whose owning session is idle.
//
// It is a leak-prevention safety net: idempotent and side-effect-free when
// there is nothing to clean. Returns the number of cancelled entries.
func (s *Service) Sweep() int {
	if s == nil || s.store == nil || s.scheduler == nil {
		return 0
	}
	cancelled := 0
	s.store.ForEach(func(sess Session) {
		if sess.State != StateIdle {
			return
		}
		if n := s.scheduler.CancelUser(sess.UserID); n > 0 {
			log.Printf("sweep cancelled orphaned triggers user_id=%s count=%d", sess.UserID, n)
			cancelled += n
		}
	})
	return cancelled
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	if s.scheduler == nil {
		return ErrSchedulerNotConfigured
	}
	return nil
}

// commit hands minutes to the stats aggregator; failures are logged and never
// roll back session state.
func (s *Service) commit(ctx context.Context, userID string, actualMinutes int) {
	if s.stats == nil {
		return
	}
	if err := s.stats.CommitSession(ctx, userID, actualMinutes); err != nil {
		log.Printf("session commit failed user_id=%s minutes=%d err=%v", userID, actualMinutes, err)
	}
}

// refreshRender edits the existing display in place, falling back to a fresh
// send when no handle exists yet. Best-effort either way.
func (s *Service) refreshRender(ctx context.Context, userID string, sess *Session, now time.Time) {
	if s.notifier == nil {
		return
	}
	view := s.renderView(*sess, now)
	if sess.RenderHandle == "" {
		handle, err := s.notifier.Send(ctx, userID, view)
		if err != nil {
			log.Printf("session render send failed user_id=%s err=%v", userID, err)
			return
		}
		sess.RenderHandle = handle
		return
	}
	if err := s.notifier.Edit(ctx, userID, sess.RenderHandle, view); err != nil {
		log.Printf("session render edit failed user_id=%s err=%v", userID, err)
	}
}

// renderView computes the progress snapshot at now.
//
// Accounted elapsed time excludes closed pause segments and any open one;
// progress is floor(elapsed/planned*100) clamped to [0,100].
func (s *Service) renderView(sess Session, now time.Time) RenderView {
	planned := time.Duration(sess.PlannedMinutes) * time.Minute
	elapsed := now.Sub(sess.StartTime) - sess.TotalPaused
	if sess.PauseStart != nil {
		elapsed -= now.Sub(*sess.PauseStart)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := planned - elapsed
	if remaining < 0 {
		remaining = 0
	}
	percent := 0
	if planned > 0 {
		percent = int(elapsed * 100 / planned)
	}
	if percent > 100 {
		percent = 100
	}
	return RenderView{
		State:           sess.State,
		PlannedMinutes:  sess.PlannedMinutes,
		Remaining:       remaining,
		ProgressPercent: percent,
		EndsAt:          sess.PlannedEnd(),
	}
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// resetToIdle clears session fields while keeping the generation, so stray
// triggers of the old generation are rejected by the guard rather than by a
// cancellation race.
func resetToIdle(sess *Session) {
	sess.State = StateIdle
	sess.StartTime = time.Time{}
	sess.PlannedMinutes = 0
	sess.PauseStart = nil
	sess.TotalPaused = 0
	sess.PausedMinutes = 0
	sess.RenderHandle = ""
}
