// Package sqlite provides SQLite-backed stats persistence.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/focus.space/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/focus.space/internal/services/stats/storage"
	"github.com/louisbranch/focus.space/internal/services/stats/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// MemoryPath selects a process-lifetime in-memory database.
const MemoryPath = ":memory:"

// Store provides SQLite-backed stats persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a stats SQLite store and applies migrations.
//
// The MemoryPath sentinel opens a process-lifetime in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	var dsn string
	memory := path == MemoryPath
	if memory {
		dsn = MemoryPath
	} else {
		cleanPath := filepath.Clean(path)
		dsn = cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		// Each pooled connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetUserStats loads the aggregate counters row for one user.
func (s *Store) GetUserStats(ctx context.Context, userID string) (storage.UserStatsRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserStatsRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserStatsRecord{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.UserStatsRecord{}, fmt.Errorf("user id is required")
	}

	var record storage.UserStatsRecord
	var updatedAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, total_study_minutes, total_sessions, longest_session_minutes,
	completed_tasks, streak, last_study_date, updated_at
FROM user_stats
WHERE user_id = ?
`, userID).Scan(
		&record.UserID,
		&record.TotalStudyMinutes,
		&record.TotalSessions,
		&record.LongestSessionMinutes,
		&record.CompletedTasks,
		&record.Streak,
		&record.LastStudyDate,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.UserStatsRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.UserStatsRecord{}, fmt.Errorf("get user stats: %w", err)
	}
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return record, nil
}

// PutUserStats upserts the aggregate counters row for one user.
func (s *Store) PutUserStats(ctx context.Context, record storage.UserStatsRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.UserID = strings.TrimSpace(record.UserID)
	if record.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO user_stats (
	user_id,
	total_study_minutes,
	total_sessions,
	longest_session_minutes,
	completed_tasks,
	streak,
	last_study_date,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	total_study_minutes = excluded.total_study_minutes,
	total_sessions = excluded.total_sessions,
	longest_session_minutes = excluded.longest_session_minutes,
	completed_tasks = excluded.completed_tasks,
	streak = excluded.streak,
	last_study_date = excluded.last_study_date,
	updated_at = excluded.updated_at
`,
		record.UserID,
		record.TotalStudyMinutes,
		record.TotalSessions,
		record.LongestSessionMinutes,
		record.CompletedTasks,
		record.Streak,
		record.LastStudyDate,
		record.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put user stats: %w", err)
	}
	return nil
}

// AddDailyStudy accumulates study minutes into one user's daily rollup.
func (s *Store) AddDailyStudy(ctx context.Context, userID string, studyDate string, minutes int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	studyDate = strings.TrimSpace(studyDate)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if studyDate == "" {
		return fmt.Errorf("study date is required")
	}
	if minutes < 0 {
		return fmt.Errorf("minutes must be non-negative")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO daily_study (user_id, study_date, minutes)
VALUES (?, ?, ?)
ON CONFLICT(user_id, study_date) DO UPDATE SET
	minutes = minutes + excluded.minutes
`, userID, studyDate, minutes)
	if err != nil {
		return fmt.Errorf("add daily study: %w", err)
	}
	return nil
}

// ListDailyStudy lists one user's daily rollups in [fromDate, toDate], oldest first.
func (s *Store) ListDailyStudy(ctx context.Context, userID string, fromDate, toDate string) ([]storage.DailyStudyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT user_id, study_date, minutes
FROM daily_study
WHERE user_id = ? AND study_date >= ? AND study_date <= ?
ORDER BY study_date ASC
`, userID, strings.TrimSpace(fromDate), strings.TrimSpace(toDate))
	if err != nil {
		return nil, fmt.Errorf("list daily study: %w", err)
	}
	defer rows.Close()

	var records []storage.DailyStudyRecord
	for rows.Next() {
		var record storage.DailyStudyRecord
		if err := rows.Scan(&record.UserID, &record.StudyDate, &record.Minutes); err != nil {
			return nil, fmt.Errorf("scan daily study: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily study: %w", err)
	}
	return records, nil
}
