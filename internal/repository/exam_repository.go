package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

// ExamRepository handles persistence for exams and exam_topics rows.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new repository instance.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `e.id, COALESCE(e.user_id, 0) AS user_id, e.subject_id, e.title, e.date, e.location, e.notes, e.created_at, sub.name AS subject_name, sub.color AS subject_color`

// ListByUser returns the user's exams ordered by date ascending.
func (r *ExamRepository) ListByUser(ctx context.Context, userID int64) ([]models.ExamWithSubject, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams e JOIN subjects sub ON sub.id = e.subject_id WHERE e.user_id = $1 ORDER BY e.date ASC`, examColumns)
	exams := []models.ExamWithSubject{}
	if err := r.db.SelectContext(ctx, &exams, query, userID); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// ListUpcoming returns the user's next exams dated now or later.
func (r *ExamRepository) ListUpcoming(ctx context.Context, userID int64, now time.Time, limit int) ([]models.ExamWithSubject, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams e JOIN subjects sub ON sub.id = e.subject_id WHERE e.user_id = $1 AND e.date >= $2 ORDER BY e.date ASC LIMIT $3`, examColumns)
	exams := []models.ExamWithSubject{}
	if err := r.db.SelectContext(ctx, &exams, query, userID, now, limit); err != nil {
		return nil, fmt.Errorf("list upcoming exams: %w", err)
	}
	return exams, nil
}

// FindByID returns an exam with its owning subject joined.
func (r *ExamRepository) FindByID(ctx context.Context, id int64) (*models.ExamWithSubject, error) {
	query := fmt.Sprintf(`SELECT %s FROM exams e JOIN subjects sub ON sub.id = e.subject_id WHERE e.id = $1`, examColumns)
	var exam models.ExamWithSubject
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Create persists a new exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	const query = `INSERT INTO exams (user_id, subject_id, title, date, location, notes) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query,
		exam.UserID,
		exam.SubjectID,
		exam.Title,
		exam.Date,
		exam.Location,
		exam.Notes,
	).Scan(&exam.ID, &exam.CreatedAt); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Delete removes an exam and its exam_topics rows transactionally.
func (r *ExamRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin exam delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_topics WHERE exam_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete exam topics: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete exam: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam delete: %w", err)
	}
	return nil
}

// AttachTopic links a topic to an exam.
func (r *ExamRepository) AttachTopic(ctx context.Context, et *models.ExamTopic) error {
	const query = `INSERT INTO exam_topics (exam_id, topic_id) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, et.ExamID, et.TopicID).
		Scan(&et.ID, &et.CreatedAt); err != nil {
		return fmt.Errorf("attach exam topic: %w", err)
	}
	return nil
}

// ListTopics returns the topics an exam covers.
func (r *ExamRepository) ListTopics(ctx context.Context, examID int64) ([]models.ExamTopicDetail, error) {
	const query = `SELECT et.id, et.exam_id, et.topic_id, et.created_at, t.name AS topic_name, t.is_completed AS topic_is_completed FROM exam_topics et JOIN topics t ON t.id = et.topic_id WHERE et.exam_id = $1 ORDER BY t.name ASC`
	topics := []models.ExamTopicDetail{}
	if err := r.db.SelectContext(ctx, &topics, query, examID); err != nil {
		return nil, fmt.Errorf("list exam topics: %w", err)
	}
	return topics, nil
}
