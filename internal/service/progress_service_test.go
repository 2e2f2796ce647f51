package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

type mockProgressSubjectRepo struct {
	subjects []models.Subject
	err      error
}

func (m *mockProgressSubjectRepo) ListByUser(ctx context.Context, userID int64) ([]models.Subject, error) {
	return m.subjects, m.err
}

type mockProgressTopicRepo struct {
	counts []models.TopicCounts
	err    error
}

func (m *mockProgressTopicRepo) CountsByUser(ctx context.Context, userID int64) ([]models.TopicCounts, error) {
	return m.counts, m.err
}

type mockProgressSessionRepo struct {
	stats []models.SubjectSessionStats
	err   error
}

func (m *mockProgressSessionRepo) StatsByUser(ctx context.Context, userID int64) ([]models.SubjectSessionStats, error) {
	return m.stats, m.err
}

func TestProgressOverviewSubjectRatio(t *testing.T) {
	lastStudied := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	svc := NewProgressService(
		&mockProgressSubjectRepo{subjects: []models.Subject{
			{ID: 1, UserID: 7, Name: "Mathematics", Color: "#ff0000"},
		}},
		&mockProgressTopicRepo{counts: []models.TopicCounts{
			{SubjectID: 1, CompletedTopics: 2, TotalTopics: 5},
		}},
		&mockProgressSessionRepo{stats: []models.SubjectSessionStats{
			{SubjectID: 1, SessionCount: 3, TotalHours: 4.5, LastStudied: &lastStudied},
		}},
		nil, 0, nil, nil,
	)

	overview, hit, err := svc.Overview(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, overview.Subjects, 1)

	math := overview.Subjects[0]
	assert.Equal(t, 40, math.Progress)
	assert.Equal(t, 2, math.CompletedTopics)
	assert.Equal(t, 5, math.TotalTopics)
	assert.Equal(t, 3, math.SessionCount)
	assert.Equal(t, "4h 30m", math.TotalStudyTime)
	require.NotNil(t, math.LastStudied)
	assert.Equal(t, lastStudied, *math.LastStudied)
}

func TestProgressOverviewZeroTopics(t *testing.T) {
	svc := NewProgressService(
		&mockProgressSubjectRepo{subjects: []models.Subject{
			{ID: 2, UserID: 7, Name: "History"},
		}},
		&mockProgressTopicRepo{},
		&mockProgressSessionRepo{},
		nil, 0, nil, nil,
	)

	overview, _, err := svc.Overview(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, overview.Subjects, 1)
	assert.Equal(t, 0, overview.Subjects[0].Progress)
	assert.Equal(t, "0h 0m", overview.Subjects[0].TotalStudyTime)
	assert.Equal(t, 0, overview.TotalProgress.Percentage)
}

func TestProgressOverviewTotalIsTopicWeighted(t *testing.T) {
	svc := NewProgressService(
		&mockProgressSubjectRepo{subjects: []models.Subject{
			{ID: 1, UserID: 7, Name: "Mathematics"},
			{ID: 2, UserID: 7, Name: "History"},
		}},
		&mockProgressTopicRepo{counts: []models.TopicCounts{
			{SubjectID: 1, CompletedTopics: 2, TotalTopics: 5},
			{SubjectID: 2, CompletedTopics: 9, TotalTopics: 10},
		}},
		&mockProgressSessionRepo{},
		nil, 0, nil, nil,
	)

	overview, _, err := svc.Overview(context.Background(), 7)
	require.NoError(t, err)

	// 11 of 15 topics, not the average of the per-subject percentages.
	assert.Equal(t, 11, overview.TotalProgress.CompletedTopics)
	assert.Equal(t, 15, overview.TotalProgress.TotalTopics)
	assert.Equal(t, 73, overview.TotalProgress.Percentage)
}

func TestProgressOverviewAnonymous(t *testing.T) {
	svc := NewProgressService(&mockProgressSubjectRepo{}, &mockProgressTopicRepo{}, &mockProgressSessionRepo{}, nil, 0, nil, nil)

	overview, hit, err := svc.Overview(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, overview.Subjects)
	assert.NotNil(t, overview.Subjects)
	assert.Equal(t, 0, overview.TotalProgress.Percentage)
}

func TestProgressOverviewReportsCacheHit(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewProgressService(
		&mockProgressSubjectRepo{subjects: []models.Subject{
			{ID: 1, UserID: 7, Name: "Mathematics"},
		}},
		&mockProgressTopicRepo{counts: []models.TopicCounts{
			{SubjectID: 1, CompletedTopics: 2, TotalTopics: 5},
		}},
		&mockProgressSessionRepo{},
		cache, time.Minute, nil, nil,
	)

	first, hit, err := svc.Overview(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Overview(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.TotalProgress, second.TotalProgress)
}

func TestProgressExportCSV(t *testing.T) {
	svc := NewProgressService(
		&mockProgressSubjectRepo{subjects: []models.Subject{
			{ID: 1, UserID: 7, Name: "Mathematics"},
		}},
		&mockProgressTopicRepo{counts: []models.TopicCounts{
			{SubjectID: 1, CompletedTopics: 2, TotalTopics: 5},
		}},
		&mockProgressSessionRepo{},
		nil, 0, nil, nil,
	)

	result, err := svc.Export(context.Background(), 7, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "progress.csv", result.Filename)
	assert.Contains(t, string(result.Content), "Mathematics")
	assert.Contains(t, string(result.Content), "40%")
}

func TestProgressExportUnknownFormat(t *testing.T) {
	svc := NewProgressService(&mockProgressSubjectRepo{}, &mockProgressTopicRepo{}, &mockProgressSessionRepo{}, nil, 0, nil, nil)

	_, err := svc.Export(context.Background(), 7, ExportFormat("xml"))
	require.Error(t, err)
}
