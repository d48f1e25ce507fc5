package domain

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/focus.space/internal/services/stats/storage"
)

var (
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("stats store is not configured")
	// ErrUserIDRequired indicates a user id is required.
	ErrUserIDRequired = errors.New("user id is required")
	// ErrNegativeMinutes indicates a commit with negative actual minutes.
	ErrNegativeMinutes = errors.New("actual minutes must be non-negative")
	// ErrInvalidDayCount indicates a daily series request for zero or fewer days.
	ErrInvalidDayCount = errors.New("day count must be greater than zero")
)

// dateLayout is the canonical YYYY-MM-DD date format used for study dates.
const dateLayout = "2006-01-02"

// Productivity score component caps. Each component contributes up to 25
// points; a component at or above its cap scores the full 25.
const (
	activityCapMinutesPerDay = 120
	streakCapDays            = 7
	sessionsCap              = 30
	tasksCap                 = 50
)

// activityWindowDays is the trailing window for the activity component.
const activityWindowDays = 7

// Stats is the per-user aggregate view of committed study sessions.
type Stats struct {
	UserID                string
	TotalStudyMinutes     int
	TotalSessions         int
	LongestSessionMinutes int
	CompletedTasks        int
	Streak                int
	// LastStudyDate is a YYYY-MM-DD UTC date, empty when the user has never
	// committed a session.
	LastStudyDate string
}

// DailyStudy is one calendar day of the study time series.
type DailyStudy struct {
	Date    string
	Minutes int
}

// ScoreBreakdown is the productivity score with its four components.
// Each component is in [0,25]; Total is their sum, in [0,100].
type ScoreBreakdown struct {
	Activity int
	Streak   int
	Sessions int
	Tasks    int
	Total    int
}

// TaskCounter reports completed task counts owned by the task subsystem.
type TaskCounter interface {
	CompletedTaskCount(ctx context.Context, userID string) (int, error)
}

// Service aggregates committed focus sessions into derived statistics.
type Service struct {
	store storage.StatsStore
	tasks TaskCounter
	clock func() time.Time

	mu      sync.Mutex
	commits map[string]*sync.Mutex
}

// NewService constructs stats domain use-cases.
func NewService(store storage.StatsStore, tasks TaskCounter, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:   store,
		tasks:   tasks,
		clock:   clock,
		commits: make(map[string]*sync.Mutex),
	}
}

// CommitSession folds one completed session into the user's counters.
//
// The caller is responsible for rounding; actualMinutes is accepted as-is.
// Streak is evaluated against the previous last-study date before it is
// overwritten: first commit starts at 1, a commit on the day after the
// previous one extends it, a repeat commit on the same day leaves it
// unchanged, and any gap resets it to 1.
func (s *Service) CommitSession(ctx context.Context, userID string, actualMinutes int) (Stats, error) {
	if s == nil || s.store == nil {
		return Stats{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Stats{}, ErrUserIDRequired
	}
	if actualMinutes < 0 {
		return Stats{}, ErrNegativeMinutes
	}

	unlock := s.lockUser(userID)
	defer unlock()

	record, err := s.store.GetUserStats(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		record = storage.UserStatsRecord{UserID: userID}
	} else if err != nil {
		return Stats{}, err
	}

	now := s.nowUTC()
	today := now.Format(dateLayout)

	switch {
	case record.LastStudyDate == "":
		record.Streak = 1
	case record.LastStudyDate == today:
		// Same-day repeat, streak unchanged.
	case dayDiff(today, record.LastStudyDate) == 1:
		record.Streak++
	default:
		record.Streak = 1
	}

	record.TotalStudyMinutes += actualMinutes
	record.TotalSessions++
	if actualMinutes > record.LongestSessionMinutes {
		record.LongestSessionMinutes = actualMinutes
	}
	if s.tasks != nil {
		if count, taskErr := s.tasks.CompletedTaskCount(ctx, userID); taskErr == nil && count >= 0 {
			record.CompletedTasks = count
		}
	}
	record.LastStudyDate = today
	record.UpdatedAt = now

	if err := s.store.AddDailyStudy(ctx, userID, today, actualMinutes); err != nil {
		return Stats{}, err
	}
	if err := s.store.PutUserStats(ctx, record); err != nil {
		return Stats{}, err
	}
	return statsFromRecord(record), nil
}

// Stats returns the user's aggregate counters, zeroed when nothing was committed yet.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	if s == nil || s.store == nil {
		return Stats{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Stats{}, ErrUserIDRequired
	}
	record, err := s.store.GetUserStats(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Stats{UserID: userID}, nil
	}
	if err != nil {
		return Stats{}, err
	}
	return statsFromRecord(record), nil
}

// ProductivityScore computes the 0-100 composite productivity score.
//
// Components: trailing 7-day average study minutes (cap 120/day), streak
// (cap 7), total sessions (cap 30), and completed tasks (cap 50). Each
// contributes min(25, round(value/cap*25)).
func (s *Service) ProductivityScore(ctx context.Context, userID string) (ScoreBreakdown, error) {
	if s == nil || s.store == nil {
		return ScoreBreakdown{}, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ScoreBreakdown{}, ErrUserIDRequired
	}

	record, err := s.store.GetUserStats(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		record = storage.UserStatsRecord{UserID: userID}
	} else if err != nil {
		return ScoreBreakdown{}, err
	}

	today := s.nowUTC()
	from := today.AddDate(0, 0, -(activityWindowDays - 1)).Format(dateLayout)
	daily, err := s.store.ListDailyStudy(ctx, userID, from, today.Format(dateLayout))
	if err != nil {
		return ScoreBreakdown{}, err
	}
	var windowMinutes int
	for _, day := range daily {
		windowMinutes += day.Minutes
	}
	averageMinutes := float64(windowMinutes) / float64(activityWindowDays)

	completedTasks := record.CompletedTasks
	if s.tasks != nil {
		if count, taskErr := s.tasks.CompletedTaskCount(ctx, userID); taskErr == nil && count >= 0 {
			completedTasks = count
		}
	}

	breakdown := ScoreBreakdown{
		Activity: componentScore(averageMinutes, activityCapMinutesPerDay),
		Streak:   componentScore(float64(record.Streak), streakCapDays),
		Sessions: componentScore(float64(record.TotalSessions), sessionsCap),
		Tasks:    componentScore(float64(completedTasks), tasksCap),
	}
	breakdown.Total = breakdown.Activity + breakdown.Streak + breakdown.Sessions + breakdown.Tasks
	return breakdown, nil
}

// DailySeries returns the last N calendar days oldest first, zero-filled.
func (s *Service) DailySeries(ctx context.Context, userID string, days int) ([]DailyStudy, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	if days <= 0 {
		return nil, ErrInvalidDayCount
	}

	today := s.nowUTC()
	start := today.AddDate(0, 0, -(days - 1))
	records, err := s.store.ListDailyStudy(ctx, userID, start.Format(dateLayout), today.Format(dateLayout))
	if err != nil {
		return nil, err
	}

	minutesByDate := make(map[string]int, len(records))
	for _, record := range records {
		minutesByDate[record.StudyDate] = record.Minutes
	}

	series := make([]DailyStudy, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		series = append(series, DailyStudy{Date: date, Minutes: minutesByDate[date]})
	}
	return series, nil
}

// lockUser serializes commits per user; commits for different users proceed
// in parallel.
func (s *Service) lockUser(userID string) func() {
	s.mu.Lock()
	userMu, ok := s.commits[userID]
	if !ok {
		userMu = &sync.Mutex{}
		s.commits[userID] = userMu
	}
	s.mu.Unlock()

	userMu.Lock()
	return userMu.Unlock
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}

// componentScore maps value against its cap into [0,25].
func componentScore(value, capValue float64) int {
	if value <= 0 || capValue <= 0 {
		return 0
	}
	score := int(math.Round(value / capValue * 25))
	if score > 25 {
		return 25
	}
	return score
}

// dayDiff returns the calendar-day distance between two YYYY-MM-DD dates.
// Unparseable dates report an unreachable distance so callers treat them as
// a broken streak.
func dayDiff(laterDate, earlierDate string) int {
	later, err := time.ParseInLocation(dateLayout, laterDate, time.UTC)
	if err != nil {
		return math.MaxInt32
	}
	earlier, err := time.ParseInLocation(dateLayout, earlierDate, time.UTC)
	if err != nil {
		return math.MaxInt32
	}
	return int(later.Sub(earlier).Hours() / 24)
}

func statsFromRecord(record storage.UserStatsRecord) Stats {
	return Stats{
		UserID:                record.UserID,
		TotalStudyMinutes:     record.TotalStudyMinutes,
		TotalSessions:         record.TotalSessions,
		LongestSessionMinutes: record.LongestSessionMinutes,
		CompletedTasks:        record.CompletedTasks,
		Streak:                record.Streak,
		LastStudyDate:         record.LastStudyDate,
	}
}
