package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

// ErrAlreadyCompleted is returned when a completion is requested for a row
// whose completed_at is already set. Completion is a one-way transition and
// its stats increment must happen exactly once.
var ErrAlreadyCompleted = errors.New("already completed")

// TopicRepository handles persistence for topics.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new repository instance.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

const topicColumns = `id, subject_id, name, description, is_completed, completed_at, created_at`

// ListBySubject returns a subject's topics ordered by name.
func (r *TopicRepository) ListBySubject(ctx context.Context, subjectID int64) ([]models.Topic, error) {
	query := fmt.Sprintf(`SELECT %s FROM topics WHERE subject_id = $1 ORDER BY name ASC`, topicColumns)
	topics := []models.Topic{}
	if err := r.db.SelectContext(ctx, &topics, query, subjectID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// FindByID returns a topic by id.
func (r *TopicRepository) FindByID(ctx context.Context, id int64) (*models.Topic, error) {
	query := fmt.Sprintf(`SELECT %s FROM topics WHERE id = $1`, topicColumns)
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// Create persists a new topic.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	const query = `INSERT INTO topics (subject_id, name, description) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, topic.SubjectID, topic.Name, topic.Description).
		Scan(&topic.ID, &topic.CreatedAt); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// Complete marks a topic completed and bumps the owning user's stats
// counter in the same transaction. Already-completed topics return
// ErrAlreadyCompleted and leave the stats untouched.
func (r *TopicRepository) Complete(ctx context.Context, id int64, now time.Time) (*models.Topic, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin topic complete: %w", err)
	}

	var row struct {
		models.Topic
		UserID int64 `db:"user_id"`
	}
	const selectQuery = `SELECT t.id, t.subject_id, t.name, t.description, t.is_completed, t.completed_at, t.created_at, COALESCE(s.user_id, 0) AS user_id FROM topics t JOIN subjects s ON s.id = t.subject_id WHERE t.id = $1 FOR UPDATE OF t`
	if err := tx.GetContext(ctx, &row, selectQuery, id); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if row.IsCompleted {
		_ = tx.Rollback()
		return nil, ErrAlreadyCompleted
	}

	if _, err := tx.ExecContext(ctx, `UPDATE topics SET is_completed = TRUE, completed_at = $2 WHERE id = $1`, id, now); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("complete topic: %w", err)
	}

	if row.UserID > 0 {
		const statsQuery = `INSERT INTO study_stats (user_id, total_study_time, topics_completed, sessions_completed, last_updated)
VALUES ($1, 0, 1, 0, $2)
ON CONFLICT (user_id) DO UPDATE SET topics_completed = study_stats.topics_completed + 1, last_updated = $2`
		if _, err := tx.ExecContext(ctx, statsQuery, row.UserID, now); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("bump topic stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit topic complete: %w", err)
	}

	topic := row.Topic
	topic.IsCompleted = true
	topic.CompletedAt = &now
	return &topic, nil
}

// Delete removes a topic and its join-table rows transactionally.
func (r *TopicRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin topic delete: %w", err)
	}

	for _, query := range []string{
		`DELETE FROM session_topics WHERE topic_id = $1`,
		`DELETE FROM exam_topics WHERE topic_id = $1`,
		`DELETE FROM topics WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete topic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit topic delete: %w", err)
	}
	return nil
}

// CountsBySubject returns completed/total topic counts for one subject.
func (r *TopicRepository) CountsBySubject(ctx context.Context, subjectID int64) (*models.TopicCounts, error) {
	const query = `SELECT $1::bigint AS subject_id, COUNT(*) FILTER (WHERE is_completed) AS completed_topics, COUNT(*) AS total_topics FROM topics WHERE subject_id = $1`
	var counts models.TopicCounts
	if err := r.db.GetContext(ctx, &counts, query, subjectID); err != nil {
		return nil, fmt.Errorf("count topics: %w", err)
	}
	return &counts, nil
}

// CountsByUser returns completed/total topic counts grouped by subject for
// every subject the user owns.
func (r *TopicRepository) CountsByUser(ctx context.Context, userID int64) ([]models.TopicCounts, error) {
	const query = `SELECT t.subject_id, COUNT(*) FILTER (WHERE t.is_completed) AS completed_topics, COUNT(*) AS total_topics FROM topics t JOIN subjects s ON s.id = t.subject_id WHERE s.user_id = $1 GROUP BY t.subject_id`
	counts := []models.TopicCounts{}
	if err := r.db.SelectContext(ctx, &counts, query, userID); err != nil {
		return nil, fmt.Errorf("count topics by user: %w", err)
	}
	return counts, nil
}
