package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

type mockStatsRepo struct {
	stats *models.StudyStats
	err   error
}

func (m *mockStatsRepo) GetOrCreate(ctx context.Context, userID int64) (*models.StudyStats, error) {
	return m.stats, m.err
}

type mockStatsSessionRepo struct {
	sessions []models.SessionWithSubject
	from     string
	to       string
	err      error
}

func (m *mockStatsSessionRepo) ListByDateRange(ctx context.Context, userID int64, from, to string) ([]models.SessionWithSubject, error) {
	m.from = from
	m.to = to
	return m.sessions, m.err
}

func fixedNow() time.Time {
	return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
}

func sessionOn(date, subject string, hours float64) models.SessionWithSubject {
	return models.SessionWithSubject{
		Session:     models.Session{Date: date, DurationHours: hours},
		SubjectName: subject,
	}
}

func TestStatsSnapshotFormatting(t *testing.T) {
	svc := NewStatsService(&mockStatsRepo{stats: &models.StudyStats{
		UserID:            7,
		TotalStudyTime:    150,
		TopicsCompleted:   4,
		SessionsCompleted: 2,
	}}, &mockStatsSessionRepo{}, nil, 0, nil)

	snapshot, hit, err := svc.Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2h 30m", snapshot.TotalStudyTime)
	assert.Equal(t, 4, snapshot.TopicsCompleted)
	assert.Equal(t, 2, snapshot.SessionsCompleted)
	assert.Equal(t, "1h 15m", snapshot.AvgSessionLength)
}

func TestStatsSnapshotNoSessions(t *testing.T) {
	svc := NewStatsService(&mockStatsRepo{stats: &models.StudyStats{UserID: 7}}, &mockStatsSessionRepo{}, nil, 0, nil)

	snapshot, _, err := svc.Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "0h 0m", snapshot.TotalStudyTime)
	assert.Equal(t, "0h 0m", snapshot.AvgSessionLength)
}

func TestStatsSnapshotAnonymous(t *testing.T) {
	svc := NewStatsService(&mockStatsRepo{}, &mockStatsSessionRepo{}, nil, 0, nil)

	snapshot, hit, err := svc.Snapshot(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "0h 0m", snapshot.TotalStudyTime)
	assert.Equal(t, 0, snapshot.TopicsCompleted)
}

func TestStatsSnapshotReportsCacheHit(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewStatsService(&mockStatsRepo{stats: &models.StudyStats{
		UserID:            7,
		TotalStudyTime:    60,
		SessionsCompleted: 1,
	}}, &mockStatsSessionRepo{}, cache, time.Minute, nil)

	first, hit, err := svc.Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.TotalStudyTime, second.TotalStudyTime)
}

func TestWeeklyAlwaysFourWindows(t *testing.T) {
	svc := NewStatsService(&mockStatsRepo{}, &mockStatsSessionRepo{}, nil, 0, nil)
	svc.now = fixedNow

	weekly, hit, err := svc.Weekly(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, weekly.WeeklyData, 4)

	// Oldest first: week indexes 3, 2, 1, 0.
	for i, window := range weekly.WeeklyData {
		assert.Equal(t, 3-i, window.WeekIndex)
		assert.NotNil(t, window.SubjectHours)
		assert.Empty(t, window.SubjectHours)
	}
}

func TestWeeklyBucketsByWindowAndSubject(t *testing.T) {
	sessions := &mockStatsSessionRepo{sessions: []models.SessionWithSubject{
		sessionOn("2026-09-01", "Mathematics", 2),   // today, not counted yet
		sessionOn("2026-08-30", "Mathematics", 1.5), // 2 days ago, newest window
		sessionOn("2026-08-25", "History", 3),       // 7 days ago, newest window
		sessionOn("2026-08-12", "History", 1),       // 20 days ago, third window back
		sessionOn("2026-08-05", "Mathematics", 2),   // 27 days ago, oldest window
	}}
	svc := NewStatsService(&mockStatsRepo{}, sessions, nil, 0, nil)
	svc.now = fixedNow

	weekly, _, err := svc.Weekly(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, weekly.WeeklyData, 4)

	assert.Equal(t, map[string]float64{"Mathematics": 2}, weekly.WeeklyData[0].SubjectHours)
	assert.Equal(t, map[string]float64{"History": 1}, weekly.WeeklyData[1].SubjectHours)
	assert.Empty(t, weekly.WeeklyData[2].SubjectHours)
	assert.Equal(t, map[string]float64{"Mathematics": 1.5, "History": 3}, weekly.WeeklyData[3].SubjectHours)

	assert.Equal(t, "2026-08-04", sessions.from)
	assert.Equal(t, "2026-09-01", sessions.to)
}

func TestWeeklyWindowBoundaries(t *testing.T) {
	sessions := &mockStatsSessionRepo{sessions: []models.SessionWithSubject{
		sessionOn("2026-09-01", "Mathematics", 2), // today, dropped
		sessionOn("2026-08-31", "Mathematics", 1), // yesterday, newest window
		sessionOn("2026-08-04", "History", 3),     // exactly 28 days ago, oldest window
	}}
	svc := NewStatsService(&mockStatsRepo{}, sessions, nil, 0, nil)
	svc.now = fixedNow

	weekly, _, err := svc.Weekly(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"History": 3}, weekly.WeeklyData[0].SubjectHours)
	assert.Equal(t, map[string]float64{"Mathematics": 1}, weekly.WeeklyData[3].SubjectHours)
}

func TestWeeklyIgnoresSessionsOutsideRange(t *testing.T) {
	sessions := &mockStatsSessionRepo{sessions: []models.SessionWithSubject{
		sessionOn("2026-08-03", "Mathematics", 2), // 29 days ago, out of range
		sessionOn("2026-09-01", "Mathematics", 2), // today, not counted yet
		sessionOn("not-a-date", "History", 1),
	}}
	svc := NewStatsService(&mockStatsRepo{}, sessions, nil, 0, nil)
	svc.now = fixedNow

	weekly, _, err := svc.Weekly(context.Background(), 7)
	require.NoError(t, err)
	for _, window := range weekly.WeeklyData {
		assert.Empty(t, window.SubjectHours)
	}
}

func TestWeeklyAnonymous(t *testing.T) {
	svc := NewStatsService(&mockStatsRepo{}, &mockStatsSessionRepo{}, nil, 0, nil)

	weekly, hit, err := svc.Weekly(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, weekly.WeeklyData, 4)
	for _, window := range weekly.WeeklyData {
		assert.Empty(t, window.SubjectHours)
	}
}
