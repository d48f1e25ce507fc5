package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/focus.space/internal/services/stats/storage"
)

type fakeStore struct {
	stats map[string]storage.UserStatsRecord
	daily map[string]map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stats: make(map[string]storage.UserStatsRecord),
		daily: make(map[string]map[string]int),
	}
}

func (f *fakeStore) GetUserStats(_ context.Context, userID string) (storage.UserStatsRecord, error) {
	record, ok := f.stats[userID]
	if !ok {
		return storage.UserStatsRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) PutUserStats(_ context.Context, record storage.UserStatsRecord) error {
	f.stats[record.UserID] = record
	return nil
}

func (f *fakeStore) AddDailyStudy(_ context.Context, userID string, studyDate string, minutes int) error {
	if f.daily[userID] == nil {
		f.daily[userID] = make(map[string]int)
	}
	f.daily[userID][studyDate] += minutes
	return nil
}

func (f *fakeStore) ListDailyStudy(_ context.Context, userID string, fromDate, toDate string) ([]storage.DailyStudyRecord, error) {
	var records []storage.DailyStudyRecord
	for date, minutes := range f.daily[userID] {
		if date >= fromDate && date <= toDate {
			records = append(records, storage.DailyStudyRecord{UserID: userID, StudyDate: date, Minutes: minutes})
		}
	}
	return records, nil
}

type fakeTaskCounter struct {
	count int
	err   error
}

func (f *fakeTaskCounter) CompletedTaskCount(context.Context, string) (int, error) {
	return f.count, f.err
}

type movableClock struct {
	now time.Time
}

func (c *movableClock) Now() time.Time { return c.now }

func TestCommitSessionAccumulatesCounters(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	svc := NewService(store, &fakeTaskCounter{count: 3}, clock.Now)

	first, err := svc.CommitSession(context.Background(), "user-1", 25)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if first.TotalStudyMinutes != 25 || first.TotalSessions != 1 || first.LongestSessionMinutes != 25 {
		t.Fatalf("unexpected first stats: %+v", first)
	}
	if first.Streak != 1 {
		t.Fatalf("streak = %d, want 1", first.Streak)
	}
	if first.CompletedTasks != 3 {
		t.Fatalf("completed tasks = %d, want mirrored 3", first.CompletedTasks)
	}

	second, err := svc.CommitSession(context.Background(), "user-1", 50)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if second.TotalStudyMinutes != 75 || second.TotalSessions != 2 {
		t.Fatalf("unexpected second stats: %+v", second)
	}
	if second.LongestSessionMinutes != 50 {
		t.Fatalf("longest session = %d, want 50", second.LongestSessionMinutes)
	}
	if got := store.daily["user-1"]["2026-08-26"]; got != 75 {
		t.Fatalf("daily minutes = %d, want 75", got)
	}
}

func TestCommitSessionStreakRules(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	svc := NewService(store, nil, clock.Now)

	commit := func(wantStreak int) {
		t.Helper()
		stats, err := svc.CommitSession(context.Background(), "user-1", 30)
		if err != nil {
			t.Fatalf("commit at %s: %v", clock.now, err)
		}
		if stats.Streak != wantStreak {
			t.Fatalf("streak at %s = %d, want %d", clock.now.Format("2006-01-02"), stats.Streak, wantStreak)
		}
	}

	// Days 1, 2, 3 in a row.
	commit(1)
	clock.now = clock.now.AddDate(0, 0, 1)
	commit(2)
	clock.now = clock.now.AddDate(0, 0, 1)
	commit(3)

	// Same-day repeat leaves the streak alone.
	commit(3)

	// Skipping a day resets.
	clock.now = clock.now.AddDate(0, 0, 2)
	commit(1)
}

func TestCommitSessionRejectsNegativeMinutes(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, nil)
	if _, err := svc.CommitSession(context.Background(), "user-1", -1); !errors.Is(err, ErrNegativeMinutes) {
		t.Fatalf("err = %v, want %v", err, ErrNegativeMinutes)
	}
}

func TestCommitSessionRequiresUserID(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, nil)
	if _, err := svc.CommitSession(context.Background(), "  ", 10); !errors.Is(err, ErrUserIDRequired) {
		t.Fatalf("err = %v, want %v", err, ErrUserIDRequired)
	}
}

func TestCommitSessionKeepsMirrorOnTaskPortFailure(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	tasks := &fakeTaskCounter{count: 5}
	svc := NewService(store, tasks, clock.Now)

	if _, err := svc.CommitSession(context.Background(), "user-1", 10); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	tasks.err = errors.New("task service unavailable")
	stats, err := svc.CommitSession(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if stats.CompletedTasks != 5 {
		t.Fatalf("completed tasks = %d, want previous mirror 5", stats.CompletedTasks)
	}
}

func TestProductivityScoreBounds(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	store.stats["user-1"] = storage.UserStatsRecord{
		UserID:        "user-1",
		TotalSessions: 500,
		Streak:        40,
		LastStudyDate: "2026-08-26",
	}
	for i := 0; i < 7; i++ {
		date := clock.now.AddDate(0, 0, -i).Format("2006-01-02")
		if err := store.AddDailyStudy(context.Background(), "user-1", date, 300); err != nil {
			t.Fatalf("seed daily: %v", err)
		}
	}
	svc := NewService(store, &fakeTaskCounter{count: 1000}, clock.Now)

	breakdown, err := svc.ProductivityScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for name, component := range map[string]int{
		"activity": breakdown.Activity,
		"streak":   breakdown.Streak,
		"sessions": breakdown.Sessions,
		"tasks":    breakdown.Tasks,
	} {
		if component < 0 || component > 25 {
			t.Fatalf("%s component = %d, want within [0,25]", name, component)
		}
	}
	if breakdown.Total != 100 {
		t.Fatalf("total = %d, want capped 100", breakdown.Total)
	}
}

func TestProductivityScoreComponents(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	store.stats["user-1"] = storage.UserStatsRecord{
		UserID:        "user-1",
		TotalSessions: 15,
		Streak:        7,
		LastStudyDate: "2026-08-26",
	}
	// 420 minutes over the window: 60/day average, half the 120 cap.
	for i := 0; i < 7; i++ {
		date := clock.now.AddDate(0, 0, -i).Format("2006-01-02")
		if err := store.AddDailyStudy(context.Background(), "user-1", date, 60); err != nil {
			t.Fatalf("seed daily: %v", err)
		}
	}
	svc := NewService(store, &fakeTaskCounter{count: 25}, clock.Now)

	breakdown, err := svc.ProductivityScore(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if breakdown.Activity != 13 {
		t.Fatalf("activity = %d, want round(60/120*25) = 13", breakdown.Activity)
	}
	if breakdown.Streak != 25 {
		t.Fatalf("streak = %d, want 25", breakdown.Streak)
	}
	if breakdown.Sessions != 13 {
		t.Fatalf("sessions = %d, want round(15/30*25) = 13", breakdown.Sessions)
	}
	if breakdown.Tasks != 13 {
		t.Fatalf("tasks = %d, want round(25/50*25) = 13", breakdown.Tasks)
	}
	if breakdown.Total != 64 {
		t.Fatalf("total = %d, want 64", breakdown.Total)
	}
}

func TestProductivityScoreZeroForNewUser(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, nil)
	breakdown, err := svc.ProductivityScore(context.Background(), "user-9")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if breakdown.Total != 0 {
		t.Fatalf("total = %d, want 0", breakdown.Total)
	}
}

func TestDailySeriesZeroFillsOldestFirst(t *testing.T) {
	t.Parallel()

	clock := &movableClock{now: time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	if err := store.AddDailyStudy(context.Background(), "user-1", "2026-08-24", 45); err != nil {
		t.Fatalf("seed daily: %v", err)
	}
	if err := store.AddDailyStudy(context.Background(), "user-1", "2026-08-26", 20); err != nil {
		t.Fatalf("seed daily: %v", err)
	}
	svc := NewService(store, nil, clock.Now)

	series, err := svc.DailySeries(context.Background(), "user-1", 4)
	if err != nil {
		t.Fatalf("daily series: %v", err)
	}
	want := []DailyStudy{
		{Date: "2026-08-23", Minutes: 0},
		{Date: "2026-08-24", Minutes: 45},
		{Date: "2026-08-25", Minutes: 0},
		{Date: "2026-08-26", Minutes: 20},
	}
	if len(series) != len(want) {
		t.Fatalf("series length = %d, want %d", len(series), len(want))
	}
	for i := range want {
		if series[i] != want[i] {
			t.Fatalf("series[%d] = %+v, want %+v", i, series[i], want[i])
		}
	}
}

func TestDailySeriesRejectsNonPositiveDays(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, nil)
	if _, err := svc.DailySeries(context.Background(), "user-1", 0); !errors.Is(err, ErrInvalidDayCount) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidDayCount)
	}
}

func TestStatsForUnknownUserIsZeroed(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), nil, nil)
	stats, err := svc.Stats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.UserID != "user-1" || stats.TotalSessions != 0 {
		t.Fatalf("unexpected zero stats: %+v", stats)
	}
}
