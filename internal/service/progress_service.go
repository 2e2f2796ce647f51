package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
	"github.com/studyrhythm/studyrhythm-api/pkg/export"
)

type progressSubjectRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Subject, error)
}

type progressTopicRepository interface {
	CountsByUser(ctx context.Context, userID int64) ([]models.TopicCounts, error)
}

type progressSessionRepository interface {
	StatsByUser(ctx context.Context, userID int64) ([]models.SubjectSessionStats, error)
}

// ExportFormat names a supported progress export encoding.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes with transport metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ProgressService aggregates per-subject completion ratios and session
// rollups into the dashboard overview.
type ProgressService struct {
	subjects progressSubjectRepository
	topics   progressTopicRepository
	sessions progressSessionRepository
	cache    *CacheService
	cacheTTL time.Duration
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	archiver *ExportArchiver
	logger   *zap.Logger
}

// NewProgressService creates a new progress service. The archiver may be nil
// when export archiving is disabled.
func NewProgressService(subjects progressSubjectRepository, topics progressTopicRepository, sessions progressSessionRepository, cache *CacheService, cacheTTL time.Duration, archiver *ExportArchiver, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		subjects: subjects,
		topics:   topics,
		sessions: sessions,
		cache:    cache,
		cacheTTL: cacheTTL,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		archiver: archiver,
		logger:   logger,
	}
}

// Overview computes the per-subject and total progress for a user. The
// second return value reports whether the result came from cache, so
// handlers can surface it in response meta. Anonymous callers get an empty
// overview rather than an error.
func (s *ProgressService) Overview(ctx context.Context, userID int64) (*models.ProgressOverview, bool, error) {
	if userID == 0 {
		return &models.ProgressOverview{Subjects: []models.SubjectProgress{}}, false, nil
	}

	if s.cache.Enabled() {
		var cached models.ProgressOverview
		if hit, err := s.cache.Get(ctx, progressCacheKey(userID), &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	overview, err := s.compute(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, progressCacheKey(userID), overview, s.cacheTTL); err != nil {
			s.logger.Warn("progress cache write failed", zap.Int64("userId", userID), zap.Error(err))
		}
	}
	return overview, false, nil
}

// Export renders the progress overview as CSV or PDF.
func (s *ProgressService) Export(ctx context.Context, userID int64, format ExportFormat) (*ExportResult, error) {
	overview, _, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}

	headers := []string{"Subject", "Completed Topics", "Total Topics", "Progress", "Sessions", "Study Time", "Last Studied"}
	rows := make([]map[string]string, 0, len(overview.Subjects)+1)
	for _, sp := range overview.Subjects {
		lastStudied := ""
		if sp.LastStudied != nil {
			lastStudied = sp.LastStudied.Format("2006-01-02 15:04")
		}
		rows = append(rows, map[string]string{
			"Subject":          sp.Name,
			"Completed Topics": strconv.Itoa(sp.CompletedTopics),
			"Total Topics":     strconv.Itoa(sp.TotalTopics),
			"Progress":         fmt.Sprintf("%d%%", sp.Progress),
			"Sessions":         strconv.Itoa(sp.SessionCount),
			"Study Time":       sp.TotalStudyTime,
			"Last Studied":     lastStudied,
		})
	}
	rows = append(rows, map[string]string{
		"Subject":          "Total",
		"Completed Topics": strconv.Itoa(overview.TotalProgress.CompletedTopics),
		"Total Topics":     strconv.Itoa(overview.TotalProgress.TotalTopics),
		"Progress":         fmt.Sprintf("%d%%", overview.TotalProgress.Percentage),
	})

	dataset := export.Dataset{Headers: headers, Rows: rows}

	var result *ExportResult
	switch format {
	case ExportCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		result = &ExportResult{Content: content, ContentType: "text/csv", Filename: "progress.csv"}
	case ExportPDF:
		content, err := s.pdf.Render(dataset, "Study Progress")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		result = &ExportResult{Content: content, ContentType: "application/pdf", Filename: "progress.pdf"}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	s.archiver.Archive(userID, result)
	return result, nil
}

func (s *ProgressService) compute(ctx context.Context, userID int64) (*models.ProgressOverview, error) {
	subjects, err := s.subjects.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}

	counts, err := s.topics.CountsByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count topics")
	}
	countsBySubject := make(map[int64]models.TopicCounts, len(counts))
	for _, c := range counts {
		countsBySubject[c.SubjectID] = c
	}

	sessionStats, err := s.sessions.StatsByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session stats")
	}
	statsBySubject := make(map[int64]models.SubjectSessionStats, len(sessionStats))
	for _, st := range sessionStats {
		statsBySubject[st.SubjectID] = st
	}

	overview := &models.ProgressOverview{Subjects: make([]models.SubjectProgress, 0, len(subjects))}
	for _, subject := range subjects {
		c := countsBySubject[subject.ID]
		st := statsBySubject[subject.ID]

		overview.Subjects = append(overview.Subjects, models.SubjectProgress{
			Subject:         subject,
			CompletedTopics: c.CompletedTopics,
			TotalTopics:     c.TotalTopics,
			Progress:        progressPercent(c.CompletedTopics, c.TotalTopics),
			SessionCount:    st.SessionCount,
			TotalStudyTime:  formatHours(st.TotalHours),
			LastStudied:     st.LastStudied,
		})

		overview.TotalProgress.CompletedTopics += c.CompletedTopics
		overview.TotalProgress.TotalTopics += c.TotalTopics
	}

	overview.TotalProgress.Percentage = progressPercent(
		overview.TotalProgress.CompletedTopics,
		overview.TotalProgress.TotalTopics,
	)
	return overview, nil
}
