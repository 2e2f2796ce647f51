package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

// weeklyWindowCount fixes the rollup to four rolling 7-day windows.
const weeklyWindowCount = 4

type statsRepository interface {
	GetOrCreate(ctx context.Context, userID int64) (*models.StudyStats, error)
}

type statsSessionRepository interface {
	ListByDateRange(ctx context.Context, userID int64, from, to string) ([]models.SessionWithSubject, error)
}

// StatsService serves the running dashboard totals and the weekly rollup.
type StatsService struct {
	repo     statsRepository
	sessions statsSessionRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService creates a new stats service.
func NewStatsService(repo statsRepository, sessions statsSessionRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{repo: repo, sessions: sessions, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Snapshot returns the formatted running totals. The second return value
// reports whether the snapshot came from cache. Anonymous callers get a
// zeroed snapshot.
func (s *StatsService) Snapshot(ctx context.Context, userID int64) (*models.StatsSnapshot, bool, error) {
	if userID == 0 {
		return &models.StatsSnapshot{TotalStudyTime: formatMinutes(0), AvgSessionLength: formatMinutes(0)}, false, nil
	}

	if s.cache.Enabled() {
		var cached models.StatsSnapshot
		if hit, err := s.cache.Get(ctx, statsCacheKey(userID), &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	stats, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study stats")
	}

	avgMinutes := 0
	if stats.SessionsCompleted > 0 {
		avgMinutes = stats.TotalStudyTime / stats.SessionsCompleted
	}

	snapshot := &models.StatsSnapshot{
		TotalStudyTime:    formatMinutes(stats.TotalStudyTime),
		TopicsCompleted:   stats.TopicsCompleted,
		SessionsCompleted: stats.SessionsCompleted,
		AvgSessionLength:  formatMinutes(avgMinutes),
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, statsCacheKey(userID), snapshot, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.Int64("userId", userID), zap.Error(err))
		}
	}
	return snapshot, false, nil
}

// Weekly returns exactly four rolling 7-day windows ordered oldest to
// newest, each bucketing session hours by subject name. Empty windows keep
// an empty map rather than disappearing. The second return value reports
// whether the rollup came from cache.
func (s *StatsService) Weekly(ctx context.Context, userID int64) (*models.WeeklyStats, bool, error) {
	windows := make([]models.WeeklyWindow, weeklyWindowCount)
	for i := range windows {
		windows[i] = models.WeeklyWindow{
			WeekIndex:    weeklyWindowCount - 1 - i,
			SubjectHours: map[string]float64{},
		}
	}
	result := &models.WeeklyStats{WeeklyData: windows}

	if userID == 0 {
		return result, false, nil
	}

	if s.cache.Enabled() {
		var cached models.WeeklyStats
		if hit, err := s.cache.Get(ctx, weeklyStatsCacheKey(userID), &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	// Every window ends at today's midnight, so a session dated today is
	// not counted yet; the oldest window starts exactly 28 days back.
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -7*weeklyWindowCount).Format("2006-01-02")
	to := today.Format("2006-01-02")

	sessions, err := s.sessions.ListByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions for weekly stats")
	}

	for _, session := range sessions {
		day, err := time.Parse("2006-01-02", session.Date)
		if err != nil {
			s.logger.Warn("skipping session with malformed date",
				zap.Int64("sessionId", session.ID), zap.String("date", session.Date))
			continue
		}
		daysAgo := int(today.Sub(day).Hours() / 24)
		if daysAgo < 1 || daysAgo > 7*weeklyWindowCount {
			continue
		}
		weeksAgo := (daysAgo - 1) / 7
		// Windows are stored oldest first, so index from the end.
		window := &result.WeeklyData[weeklyWindowCount-1-weeksAgo]
		window.SubjectHours[session.SubjectName] += session.DurationHours
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, weeklyStatsCacheKey(userID), result, s.cacheTTL); err != nil {
			s.logger.Warn("weekly stats cache write failed", zap.Int64("userId", userID), zap.Error(err))
		}
	}
	return result, false, nil
}
