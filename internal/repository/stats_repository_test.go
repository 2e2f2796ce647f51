package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsRow(userID int64, total, topics, sessions int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "total_study_time", "topics_completed", "sessions_completed", "last_updated"}).
		AddRow(1, userID, total, topics, sessions, time.Now())
}

func TestStatsRepositoryGetExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, total_study_time")).
		WithArgs(int64(7)).
		WillReturnRows(statsRow(7, 150, 4, 2))

	stats, err := repo.GetOrCreate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 150, stats.TotalStudyTime)
	assert.Equal(t, 4, stats.TopicsCompleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryCreatesRowOnFirstRead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, total_study_time")).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO study_stats (user_id) VALUES ($1)")).
		WithArgs(int64(7)).
		WillReturnRows(statsRow(7, 0, 0, 0))

	stats, err := repo.GetOrCreate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalStudyTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRepositoryReloadsAfterInsertRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStatsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, total_study_time")).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO study_stats (user_id) VALUES ($1)")).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, total_study_time")).
		WithArgs(int64(7)).
		WillReturnRows(statsRow(7, 30, 1, 1))

	stats, err := repo.GetOrCreate(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.TotalStudyTime)
	require.NoError(t, mock.ExpectationsWereMet())
}
