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

type topicRepository interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.Topic, error)
	FindByID(ctx context.Context, id int64) (*models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
	Complete(ctx context.Context, id int64, now time.Time) (*models.Topic, error)
	Delete(ctx context.Context, id int64) error
}

type topicSubjectRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

// CreateTopicRequest captures fields for creating topics.
type CreateTopicRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=150"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// TopicService handles topic domain workflows.
type TopicService struct {
	repo      topicRepository
	subjects  topicSubjectRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTopicService creates a new topic service.
func NewTopicService(repo topicRepository, subjects topicSubjectRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TopicService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicService{repo: repo, subjects: subjects, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// ListBySubject returns a subject's topics, scoped to the requesting user.
func (s *TopicService) ListBySubject(ctx context.Context, userID, subjectID int64) ([]models.Topic, error) {
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}
	topics, err := s.repo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list topics")
	}
	return topics, nil
}

// Create adds a new topic under the given subject.
func (s *TopicService) Create(ctx context.Context, userID, subjectID int64, req CreateTopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid topic payload")
	}
	if _, err := s.ownedSubject(ctx, userID, subjectID); err != nil {
		return nil, err
	}

	topic := &models.Topic{
		SubjectID:   subjectID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}

	if err := s.repo.Create(ctx, topic); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create topic")
	}

	s.invalidateAggregates(ctx, userID)
	return topic, nil
}

// Complete marks a topic as done. Completion happens at most once; repeats
// surface a conflict and never double-count stats.
func (s *TopicService) Complete(ctx context.Context, userID, id int64) (*models.Topic, error) {
	if _, err := s.ownedTopic(ctx, userID, id); err != nil {
		return nil, err
	}

	topic, err := s.repo.Complete(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCompleted) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "topic is already completed")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete topic")
	}

	s.invalidateAggregates(ctx, userID)
	return topic, nil
}

// Delete removes a topic and its join rows.
func (s *TopicService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedTopic(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete topic")
	}
	s.invalidateAggregates(ctx, userID)
	return nil
}

func (s *TopicService) ownedSubject(ctx context.Context, userID, subjectID int64) (*models.Subject, error) {
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

func (s *TopicService) ownedTopic(ctx context.Context, userID, id int64) (*models.Topic, error) {
	topic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	if _, err := s.ownedSubject(ctx, userID, topic.SubjectID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
	}
	return topic, nil
}

func (s *TopicService) invalidateAggregates(ctx context.Context, userID int64) {
	if err := invalidateUserAggregates(ctx, s.cache, userID); err != nil {
		s.logger.Warn("aggregate cache invalidation failed", zap.Int64("userId", userID), zap.Error(err))
	}
}
