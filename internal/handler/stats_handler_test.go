package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

type mockStatsService struct {
	snapshot   *models.StatsSnapshot
	weekly     *models.WeeklyStats
	cacheHit   bool
	err        error
	lastUserID int64
}

func (m *mockStatsService) Snapshot(_ context.Context, userID int64) (*models.StatsSnapshot, bool, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, false, m.err
	}
	return m.snapshot, m.cacheHit, nil
}

func (m *mockStatsService) Weekly(_ context.Context, userID int64) (*models.WeeklyStats, bool, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, false, m.err
	}
	return m.weekly, m.cacheHit, nil
}

func TestStatsHandlerSnapshot(t *testing.T) {
	mock := &mockStatsService{snapshot: &models.StatsSnapshot{
		TotalStudyTime:    "2h 30m",
		TopicsCompleted:   4,
		SessionsCompleted: 2,
		AvgSessionLength:  "1h 15m",
	}}
	h := NewStatsHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/stats")
	authenticate(c, 7)

	h.Snapshot(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, int64(7), mock.lastUserID)

	var envelope struct {
		Data models.StatsSnapshot   `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "2h 30m", envelope.Data.TotalStudyTime)
	assert.Equal(t, "1h 15m", envelope.Data.AvgSessionLength)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestStatsHandlerSnapshotCacheHitMeta(t *testing.T) {
	mock := &mockStatsService{snapshot: &models.StatsSnapshot{}, cacheHit: true}
	h := NewStatsHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/stats")
	authenticate(c, 7)

	h.Snapshot(c)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestStatsHandlerSnapshotError(t *testing.T) {
	mock := &mockStatsService{err: appErrors.ErrInternal}
	h := NewStatsHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/stats")
	authenticate(c, 7)

	h.Snapshot(c)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestStatsHandlerWeekly(t *testing.T) {
	mock := &mockStatsService{weekly: &models.WeeklyStats{WeeklyData: []models.WeeklyWindow{
		{WeekIndex: 3, SubjectHours: map[string]float64{}},
		{WeekIndex: 2, SubjectHours: map[string]float64{}},
		{WeekIndex: 1, SubjectHours: map[string]float64{"History": 3}},
		{WeekIndex: 0, SubjectHours: map[string]float64{"Mathematics": 2}},
	}}}
	h := NewStatsHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/stats/weekly")
	authenticate(c, 7)

	h.Weekly(c)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data models.WeeklyStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.WeeklyData, 4)
	assert.Equal(t, 3, envelope.Data.WeeklyData[0].WeekIndex)
	assert.InDelta(t, 2, envelope.Data.WeeklyData[3].SubjectHours["Mathematics"], 0.0001)
}

func TestStatsHandlerWeeklyAnonymous(t *testing.T) {
	mock := &mockStatsService{weekly: &models.WeeklyStats{WeeklyData: []models.WeeklyWindow{}}}
	h := NewStatsHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/stats/weekly")

	h.Weekly(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, int64(0), mock.lastUserID)
}
