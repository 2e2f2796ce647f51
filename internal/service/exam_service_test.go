package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

type mockExamRepo struct {
	exams    map[int64]models.ExamWithSubject
	topics   []models.ExamTopicDetail
	created  *models.Exam
	deleted  []int64
	attached []models.ExamTopic
}

func (m *mockExamRepo) ListByUser(ctx context.Context, userID int64) ([]models.ExamWithSubject, error) {
	var list []models.ExamWithSubject
	for _, exam := range m.exams {
		if exam.UserID == userID {
			list = append(list, exam)
		}
	}
	return list, nil
}

func (m *mockExamRepo) ListUpcoming(ctx context.Context, userID int64, now time.Time, limit int) ([]models.ExamWithSubject, error) {
	var list []models.ExamWithSubject
	for _, exam := range m.exams {
		if exam.UserID == userID && !exam.Date.Before(now) && len(list) < limit {
			list = append(list, exam)
		}
	}
	return list, nil
}

func (m *mockExamRepo) FindByID(ctx context.Context, id int64) (*models.ExamWithSubject, error) {
	if exam, ok := m.exams[id]; ok {
		return &exam, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = 500
	m.created = exam
	return nil
}

func (m *mockExamRepo) Delete(ctx context.Context, id int64) error {
	delete(m.exams, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockExamRepo) AttachTopic(ctx context.Context, et *models.ExamTopic) error {
	et.ID = 600
	m.attached = append(m.attached, *et)
	return nil
}

func (m *mockExamRepo) ListTopics(ctx context.Context, examID int64) ([]models.ExamTopicDetail, error) {
	return m.topics, nil
}

type mockExamTopicCounts struct {
	topics   map[int64]models.Topic
	counts   map[int64]models.TopicCounts
	countErr error
}

func (m *mockExamTopicCounts) FindByID(ctx context.Context, id int64) (*models.Topic, error) {
	if topic, ok := m.topics[id]; ok {
		return &topic, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamTopicCounts) CountsBySubject(ctx context.Context, subjectID int64) (*models.TopicCounts, error) {
	if m.countErr != nil {
		return nil, m.countErr
	}
	counts := m.counts[subjectID]
	counts.SubjectID = subjectID
	return &counts, nil
}

func (m *mockExamTopicCounts) CountsByUser(ctx context.Context, userID int64) ([]models.TopicCounts, error) {
	var list []models.TopicCounts
	for id, c := range m.counts {
		c.SubjectID = id
		list = append(list, c)
	}
	return list, nil
}

func examFor(id int64, date time.Time) models.ExamWithSubject {
	return models.ExamWithSubject{
		Exam: models.Exam{
			ID:        id,
			UserID:    7,
			SubjectID: 1,
			Title:     "Midterm",
			Date:      date,
		},
		SubjectName:  "Mathematics",
		SubjectColor: "#3366ff",
	}
}

func TestExamListBorrowsSubjectProgress(t *testing.T) {
	repo := &mockExamRepo{exams: map[int64]models.ExamWithSubject{
		1: examFor(1, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)),
	}}
	counts := &mockExamTopicCounts{counts: map[int64]models.TopicCounts{
		1: {CompletedTopics: 2, TotalTopics: 5},
	}}
	svc := NewExamService(repo, ownedSubjectFinder(), counts, nil, nil, 5)

	exams, err := svc.List(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, 40, exams[0].Progress)
}

func TestExamListAnonymous(t *testing.T) {
	svc := NewExamService(&mockExamRepo{}, ownedSubjectFinder(), &mockExamTopicCounts{}, nil, nil, 5)

	exams, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, exams)
	assert.NotNil(t, exams)
}

func TestExamCreate(t *testing.T) {
	repo := &mockExamRepo{}
	counts := &mockExamTopicCounts{}
	svc := NewExamService(repo, ownedSubjectFinder(), counts, nil, nil, 5)

	exam, err := svc.Create(context.Background(), 7, CreateExamRequest{
		SubjectID: 1,
		Title:     "Midterm",
		Date:      "2026-10-01",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), exam.Date)
	assert.Equal(t, 0, exam.Progress)
	require.NotNil(t, repo.created)
}

func TestExamCreateBadDate(t *testing.T) {
	svc := NewExamService(&mockExamRepo{}, ownedSubjectFinder(), &mockExamTopicCounts{}, nil, nil, 5)

	_, err := svc.Create(context.Background(), 7, CreateExamRequest{
		SubjectID: 1,
		Title:     "Midterm",
		Date:      "10/01/2026",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestExamAttachTopicSubjectMismatch(t *testing.T) {
	repo := &mockExamRepo{exams: map[int64]models.ExamWithSubject{
		1: examFor(1, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)),
	}}
	counts := &mockExamTopicCounts{topics: map[int64]models.Topic{
		50: {ID: 50, SubjectID: 2, Name: "Unrelated"},
	}}
	svc := NewExamService(repo, ownedSubjectFinder(), counts, nil, nil, 5)

	_, err := svc.AttachTopic(context.Background(), 7, 1, AttachExamTopicRequest{TopicID: 50})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Empty(t, repo.attached)
}

func TestExamDeleteOtherUsers(t *testing.T) {
	exam := examFor(1, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	exam.UserID = 99
	repo := &mockExamRepo{exams: map[int64]models.ExamWithSubject{1: exam}}
	svc := NewExamService(repo, ownedSubjectFinder(), &mockExamTopicCounts{}, nil, nil, 5)

	err := svc.Delete(context.Background(), 7, 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Empty(t, repo.deleted)
}
