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
	appErrors "github.com/studyrhythm/studyrhythm-api/pkg/errors"
)

type examRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]models.ExamWithSubject, error)
	ListUpcoming(ctx context.Context, userID int64, now time.Time, limit int) ([]models.ExamWithSubject, error)
	FindByID(ctx context.Context, id int64) (*models.ExamWithSubject, error)
	Create(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id int64) error
	AttachTopic(ctx context.Context, et *models.ExamTopic) error
	ListTopics(ctx context.Context, examID int64) ([]models.ExamTopicDetail, error)
}

type examSubjectRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
}

type examTopicCountsRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Topic, error)
	CountsBySubject(ctx context.Context, subjectID int64) (*models.TopicCounts, error)
	CountsByUser(ctx context.Context, userID int64) ([]models.TopicCounts, error)
}

// CreateExamRequest captures fields for creating exams. Date arrives as a
// calendar day.
type CreateExamRequest struct {
	SubjectID int64   `json:"subjectId" validate:"required,gt=0"`
	Title     string  `json:"title" validate:"required,min=1,max=200"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Location  *string `json:"location" validate:"omitempty,max=200"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// AttachExamTopicRequest links an existing topic to an exam.
type AttachExamTopicRequest struct {
	TopicID int64 `json:"topicId" validate:"required,gt=0"`
}

// ExamService handles exam workflows. Exam readiness borrows the owning
// subject's topic-completion ratio.
type ExamService struct {
	repo          examRepository
	subjects      examSubjectRepository
	topics        examTopicCountsRepository
	validator     *validator.Validate
	logger        *zap.Logger
	upcomingLimit int
	now           func() time.Time
}

// NewExamService creates a new exam service.
func NewExamService(repo examRepository, subjects examSubjectRepository, topics examTopicCountsRepository, validate *validator.Validate, logger *zap.Logger, upcomingLimit int) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if upcomingLimit <= 0 {
		upcomingLimit = 5
	}
	return &ExamService{repo: repo, subjects: subjects, topics: topics, validator: validate, logger: logger, upcomingLimit: upcomingLimit, now: time.Now}
}

// List returns the user's exams with derived progress, soonest first.
func (s *ExamService) List(ctx context.Context, userID int64) ([]models.ExamView, error) {
	if userID == 0 {
		return []models.ExamView{}, nil
	}
	exams, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return s.withProgress(ctx, userID, exams)
}

// ListUpcoming returns the next exams dated today or later.
func (s *ExamService) ListUpcoming(ctx context.Context, userID int64) ([]models.ExamView, error) {
	if userID == 0 {
		return []models.ExamView{}, nil
	}
	exams, err := s.repo.ListUpcoming(ctx, userID, s.now().UTC().Truncate(24*time.Hour), s.upcomingLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming exams")
	}
	return s.withProgress(ctx, userID, exams)
}

// Get returns a single exam with progress and covered topics.
func (s *ExamService) Get(ctx context.Context, userID, id int64) (*models.ExamDetail, error) {
	exam, err := s.ownedExam(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.topics.CountsBySubject(ctx, exam.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count topics")
	}

	topics, err := s.repo.ListTopics(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam topics")
	}

	return &models.ExamDetail{
		ExamWithSubject: *exam,
		Progress:        progressPercent(counts.CompletedTopics, counts.TotalTopics),
		Topics:          topics,
	}, nil
}

// Create adds a new exam under the given subject.
func (s *ExamService) Create(ctx context.Context, userID int64, req CreateExamRequest) (*models.ExamView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}

	subject, err := s.ownedSubject(ctx, userID, req.SubjectID)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	exam := &models.Exam{
		UserID:    userID,
		SubjectID: req.SubjectID,
		Title:     strings.TrimSpace(req.Title),
		Date:      date,
		Location:  req.Location,
		Notes:     req.Notes,
	}

	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}

	counts, err := s.topics.CountsBySubject(ctx, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count topics")
	}

	return &models.ExamView{
		ExamWithSubject: models.ExamWithSubject{
			Exam:         *exam,
			SubjectName:  subject.Name,
			SubjectColor: subject.Color,
		},
		Progress: progressPercent(counts.CompletedTopics, counts.TotalTopics),
	}, nil
}

// Delete removes an exam and its topic links.
func (s *ExamService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.ownedExam(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	return nil
}

// AttachTopic links a topic to an exam. The topic must live under the
// exam's subject.
func (s *ExamService) AttachTopic(ctx context.Context, userID, examID int64, req AttachExamTopicRequest) (*models.ExamTopic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam topic payload")
	}

	exam, err := s.ownedExam(ctx, userID, examID)
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
	if topic.SubjectID != exam.SubjectID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "topic belongs to a different subject")
	}

	et := &models.ExamTopic{ExamID: examID, TopicID: req.TopicID}
	if err := s.repo.AttachTopic(ctx, et); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach topic to exam")
	}
	return et, nil
}

func (s *ExamService) withProgress(ctx context.Context, userID int64, exams []models.ExamWithSubject) ([]models.ExamView, error) {
	counts, err := s.topics.CountsByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count topics")
	}

	bySubject := make(map[int64]models.TopicCounts, len(counts))
	for _, c := range counts {
		bySubject[c.SubjectID] = c
	}

	views := make([]models.ExamView, 0, len(exams))
	for _, exam := range exams {
		c := bySubject[exam.SubjectID]
		views = append(views, models.ExamView{
			ExamWithSubject: exam,
			Progress:        progressPercent(c.CompletedTopics, c.TotalTopics),
		})
	}
	return views, nil
}

func (s *ExamService) ownedSubject(ctx context.Context, userID, subjectID int64) (*models.Subject, error) {
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

func (s *ExamService) ownedExam(ctx context.Context, userID, id int64) (*models.ExamWithSubject, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if exam.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
	}
	return exam, nil
}
