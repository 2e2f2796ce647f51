package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyrhythm/studyrhythm-api/internal/middleware"
	"github.com/studyrhythm/studyrhythm-api/internal/models"
	"github.com/studyrhythm/studyrhythm-api/internal/service"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/response"
)

type mockProgressService struct {
	overview   *models.ProgressOverview
	cacheHit   bool
	export     *service.ExportResult
	err        error
	lastUserID int64
	lastFormat service.ExportFormat
}

func (m *mockProgressService) Overview(_ context.Context, userID int64) (*models.ProgressOverview, bool, error) {
	m.lastUserID = userID
	if m.err != nil {
		return nil, false, m.err
	}
	return m.overview, m.cacheHit, nil
}

func (m *mockProgressService) Export(_ context.Context, userID int64, format service.ExportFormat) (*service.ExportResult, error) {
	m.lastUserID = userID
	m.lastFormat = format
	if m.err != nil {
		return nil, m.err
	}
	return m.export, nil
}

func newTestContext(t *testing.T, method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	req, err := http.NewRequest(method, target, nil)
	require.NoError(t, err)
	c.Request = req
	return c, recorder
}

func authenticate(c *gin.Context, userID int64) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID})
}

func TestProgressHandlerOverview(t *testing.T) {
	mock := &mockProgressService{overview: &models.ProgressOverview{
		Subjects: []models.SubjectProgress{
			{Subject: models.Subject{ID: 1, Name: "Mathematics"}, Progress: 40, TotalStudyTime: "4h 30m"},
		},
		TotalProgress: models.TotalProgress{CompletedTopics: 2, TotalTopics: 5, Percentage: 40},
	}}
	h := NewProgressHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/progress")
	authenticate(c, 7)

	h.Overview(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, int64(7), mock.lastUserID)

	var envelope struct {
		Data models.ProgressOverview `json:"data"`
		Meta map[string]interface{}  `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Subjects, 1)
	assert.Equal(t, "Mathematics", envelope.Data.Subjects[0].Name)
	assert.Equal(t, 40, envelope.Data.TotalProgress.Percentage)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestProgressHandlerOverviewCacheHitMeta(t *testing.T) {
	mock := &mockProgressService{
		overview: &models.ProgressOverview{Subjects: []models.SubjectProgress{}},
		cacheHit: true,
	}
	h := NewProgressHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/progress")
	authenticate(c, 7)

	h.Overview(c)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
}

func TestProgressHandlerOverviewAnonymous(t *testing.T) {
	mock := &mockProgressService{overview: &models.ProgressOverview{Subjects: []models.SubjectProgress{}}}
	h := NewProgressHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/progress")

	h.Overview(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, int64(0), mock.lastUserID)
}

func TestProgressHandlerOverviewError(t *testing.T) {
	mock := &mockProgressService{err: appErrors.ErrInternal}
	h := NewProgressHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/progress")
	authenticate(c, 7)

	h.Overview(c)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
}

func TestProgressHandlerExportDefaultsToCSV(t *testing.T) {
	mock := &mockProgressService{export: &service.ExportResult{
		Content:     []byte("Subject,Progress\nMathematics,40%\n"),
		ContentType: "text/csv",
		Filename:    "progress.csv",
	}}
	h := NewProgressHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/progress/export")
	authenticate(c, 7)

	h.Export(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, service.ExportCSV, mock.lastFormat)
	assert.Equal(t, "text/csv", recorder.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="progress.csv"`, recorder.Header().Get("Content-Disposition"))
	assert.Contains(t, recorder.Body.String(), "Mathematics")
}

func TestProgressHandlerExportUnknownFormat(t *testing.T) {
	mock := &mockProgressService{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	h := NewProgressHandler(mock)

	c, recorder := newTestContext(t, http.MethodGet, "/api/progress/export?format=xlsx")
	authenticate(c, 7)

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, service.ExportFormat("xlsx"), mock.lastFormat)
}
