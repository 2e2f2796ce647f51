package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRow(id int64, userID int64, durationHours float64, completedAt *time.Time) *sqlmock.Rows {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "user_id", "subject_id", "topic", "date", "start_time", "end_time", "duration_hours", "notes", "completed_at", "created_at"}).
		AddRow(id, userID, 1, "Revision", "2026-09-01", start, start.Add(2*time.Hour), durationHours, nil, completedAt, time.Now())
}

func TestSessionRepositoryCompleteAddsDurationMinutes(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sessionRow(1, 7, 2, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET completed_at = $2 WHERE id = $1")).
		WithArgs(int64(1), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// A 2 hour session adds exactly 120 minutes.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO study_stats")).
		WithArgs(int64(7), 120, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	session, err := repo.Complete(context.Background(), 1, now)
	require.NoError(t, err)
	require.NotNil(t, session.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCompleteAlreadyCompleted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	done := time.Now().UTC().Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sessionRow(1, 7, 2, &done))
	mock.ExpectRollback()

	_, err := repo.Complete(context.Background(), 1, time.Now().UTC())
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeleteRemovesJoinRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_topics WHERE session_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByUserFiltersSubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "user_id", "subject_id", "topic", "date", "start_time", "end_time", "duration_hours", "notes", "completed_at", "created_at", "subject_name", "subject_color"}).
		AddRow(1, 7, 2, "Revision", "2026-09-01", start, start.Add(time.Hour), 1.0, nil, nil, time.Now(), "History", "#884400")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.date DESC, s.start_time DESC")).
		WithArgs(int64(7), int64(2)).
		WillReturnRows(rows)

	sessions, err := repo.ListByUser(context.Background(), 7, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "History", sessions[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryStatsByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	last := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"subject_id", "session_count", "total_hours", "last_studied"}).
		AddRow(1, 3, 4.5, last).
		AddRow(2, 1, 1.0, nil)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY subject_id")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	stats, err := repo.StatsByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 3, stats[0].SessionCount)
	assert.InDelta(t, 4.5, stats[0].TotalHours, 0.0001)
	require.NotNil(t, stats[0].LastStudied)
	assert.Nil(t, stats[1].LastStudied)
	require.NoError(t, mock.ExpectationsWereMet())
}
