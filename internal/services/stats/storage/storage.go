// Package storage defines the persistence boundary for study statistics.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a stats record was not found.
var ErrNotFound = errors.New("stats record not found")

// UserStatsRecord is one per-user row of monotonic study counters.
type UserStatsRecord struct {
	UserID                string
	TotalStudyMinutes     int
	TotalSessions         int
	LongestSessionMinutes int
	CompletedTasks        int
	Streak                int
	// LastStudyDate is a YYYY-MM-DD UTC date, empty when the user has never
	// committed a session.
	LastStudyDate string
	UpdatedAt     time.Time
}

// DailyStudyRecord is one per-user per-day study minutes rollup row.
type DailyStudyRecord struct {
	UserID string
	// StudyDate is a YYYY-MM-DD UTC date.
	StudyDate string
	Minutes   int
}

// StatsStore persists per-user aggregates and daily study rollups.
type StatsStore interface {
	GetUserStats(ctx context.Context, userID string) (UserStatsRecord, error)
	PutUserStats(ctx context.Context, record UserStatsRecord) error
	AddDailyStudy(ctx context.Context, userID string, studyDate string, minutes int) error
	ListDailyStudy(ctx context.Context, userID string, fromDate, toDate string) ([]DailyStudyRecord, error)
}
