package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
	"github.com/studyrhythm/studyrhythm-api/internal/repository"
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

type sessionRepository interface {
	ListByUser(ctx context.Context, userID int64, subjectID int64) ([]models.SessionWithSubject, error)
	ListToday(ctx context.Context, userID int64, date string) ([]models.TodaySession, error)
	FindByID(ctx context.Context, id int64) (*models.SessionWithSubject, error)
	Create(ctx context.Context, session *models.Session) error
	Complete(ctx context.Context, id int64, now time.Time) (*models.Session, error)
	Delete(ctx context.Context, id int64) error
	AttachTopic(ctx context.Context, st *models.SessionTopic) error
	ListTopics(ctx context.Context, sessionID int64) ([]models.SessionTopicDetail, error)
}

type sessionSubjectRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type sessionTopicRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Topic, error)
}

// CreateSessionRequest captures fields for scheduling a study session.
type CreateSessionRequest struct {
	SubjectID int64     `json:"subjectId" validate:"required,gt=0"`
	Topic     string    `json:"topic" validate:"required,min=1,max=200"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	Notes     *string   `json:"notes" validate:"omitempty,max=2000"`
}

// AttachSessionTopicRequest links an existing topic to a session.
type AttachSessionTopicRequest struct {
	TopicID int64 `json:"topicId" validate:"required,gt=0"`
}

// SessionService handles study session workflows.
type SessionService struct {
	repo      sessionRepository
	subjects  sessionSubjectRepository
	topics    sessionTopicRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(repo sessionRepository, subjects sessionSubjectRepository, topics sessionTopicRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, subjects: subjects, topics: topics, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// List returns the user's sessions with derived status, optionally filtered
// by subject and status. Anonymous callers get an empty list.
func (s *SessionService) List(ctx context.Context, userID int64, filter models.SessionFilter) ([]models.SessionView, error) {
	if userID == 0 {
		return []models.SessionView{}, nil
	}

	sessions, err := s.repo.ListByUser(ctx, userID, filter.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}

	now := s.now().UTC()
	views := make([]models.SessionView, 0, len(sessions))
	for _, session := range sessions {
		status := session.StatusAt(now)
		if filter.Status != "" && status != filter.Status {
			continue
		}
		views = append(views, models.SessionView{SessionWithSubject: session, Status: status})
	}
	return views, nil
}

// ListToday returns today's sessions with their topic completion counts.
func (s *SessionService) ListToday(ctx context.Context, userID int64) ([]models.TodaySession, error) {
	if userID == 0 {
		return []models.TodaySession{}, nil
	}

	now := s.now().UTC()
	sessions, err := s.repo.ListToday(ctx, userID, now.Format("2006-01-02"))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's sessions")
	}

	for i := range sessions {
		sessions[i].Status = sessions[i].StatusAt(now)
	}
	return sessions, nil
}

// Get returns a single session with its covered topics.
func (s *SessionService) Get(ctx context.Context, userID, id int64) (*models.SessionDetail, error) {
	session, err := s.ownedSession(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	topics, err := s.repo.ListTopics(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session topics")
	}

	return &models.SessionDetail{
		SessionWithSubject: *session,
		Status:             session.StatusAt(s.now().UTC()),
		Topics:             topics,
	}, nil
}

// Create schedules a new session. Duration is derived from the start and
// end instants, never taken from the client.
func (s *SessionService) Create(ctx context.Context, userID int64, req CreateSessionRequest) (*models.SessionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
	}

	subject, err := s.ownedSubject(ctx, userID, req.SubjectID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:        userID,
		SubjectID:     req.SubjectID,
		Topic:         strings.TrimSpace(req.Topic),
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		DurationHours: req.EndTime.Sub(req.StartTime).Hours(),
		Notes:         req.Notes,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.invalidateAggregates(ctx, userID)

	view := models.SessionView{
		SessionWithSubject: models.SessionWithSubject{
			Session:      *session,
			SubjectName:  subject.Name,
			SubjectColor: subject.Color,
		},
	}
	view.Status = view.StatusAt(s.now().UTC())
	return &view, nil
}

// Complete marks a session as finished. The stats counters absorb the
// session's duration exactly once; repeats surface a conflict.
func (s *SessionService) Complete(ctx context.Context, userID, id int64) (*models.Session, error) {
	if _, err := s.ownedSession(ctx, userID, id); err != nil {
		return nil, err
	}

	session, err := s.repo.Complete(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCompleted) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session is already completed")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
	}

	s.invalidateAggregates(ctx, userID)
	return session, nil
}

// Delete removes a session and its topic links.
func (s *SessionService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedSession(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.invalidateAggregates(ctx, userID)
	return nil
}

// AttachTopic links a topic to a session. The topic must live under the
// session's subject.
func (s *SessionService) AttachTopic(ctx context.Context, userID, sessionID int64, req AttachSessionTopicRequest) (*models.SessionTopic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session topic payload")
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	topic, err := s.topics.FindByID(ctx, req.TopicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	if topic.SubjectID != session.SubjectID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "topic belongs to a different subject")
	}

	st := &models.SessionTopic{SessionID: sessionID, TopicID: req.TopicID}
	if err := s.repo.AttachTopic(ctx, st); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach topic to session")
	}
	return st, nil
}

// ListTopics returns the topics covered by a session.
func (s *SessionService) ListTopics(ctx context.Context, userID, sessionID int64) ([]models.SessionTopicDetail, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	topics, err := s.repo.ListTopics(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list session topics")
	}
	return topics, nil
}

func (s *SessionService) ownedSubject(ctx context.Context, userID, subjectID int64) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return subject, nil
}

func (s *SessionService) ownedSession(ctx context.Context, userID, id int64) (*models.SessionWithSubject, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return session, nil
}

func (s *SessionService) invalidateAggregates(ctx context.Context, userID int64) {
	if err := invalidateUserAggregates(ctx, s.cache, userID); err != nil {
		s.logger.Warn("aggregate cache invalidation failed", zap.Int64("userId", userID), zap.Error(err))
	}
}
