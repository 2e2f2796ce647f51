package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

func TestSubjectRepositoryDeleteCascadesInOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exam_topics WHERE exam_id IN (SELECT id FROM exams WHERE subject_id = $1)")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exams WHERE subject_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM session_topics WHERE session_id IN (SELECT id FROM sessions WHERE subject_id = $1)")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE subject_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM topics WHERE subject_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryDeleteRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exam_topics")).
		WithArgs(int64(1)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	require.Error(t, repo.Delete(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateSurfacesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO subjects")).
		WithArgs(int64(7), "Mathematics", "#3366ff").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "subjects_user_id_name_key"})

	err := repo.Create(context.Background(), &models.Subject{UserID: 7, Name: "Mathematics", Color: "#3366ff"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "name", "color", "created_at"}).
		AddRow(1, 7, "History", "#884400", time.Now()).
		AddRow(2, 7, "Mathematics", "#3366ff", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY name ASC")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	subjects, err := repo.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "History", subjects[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
