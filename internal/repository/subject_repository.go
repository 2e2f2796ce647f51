package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = `id, COALESCE(user_id, 0) AS user_id, name, color, created_at`

// ListByUser returns the user's subjects ordered by name.
func (r *SubjectRepository) ListByUser(ctx context.Context, userID int64) ([]models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE user_id = $1 ORDER BY name ASC`, subjectColumns)
	subjects := []models.Subject{}
	if err := r.db.SelectContext(ctx, &subjects, query, userID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM subjects WHERE id = $1`, subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByName checks uniqueness of a subject name within a user's scope.
func (r *SubjectRepository) ExistsByName(ctx context.Context, userID int64, name string) (bool, error) {
	const query = `SELECT 1 FROM subjects WHERE user_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, name); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject name: %w", err)
	}
	return true, nil
}

// Create persists a new subject. A unique violation on (user_id, name) is
// surfaced unwrapped so the caller can map it to a conflict.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	const query = `INSERT INTO subjects (user_id, name, color) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, subject.UserID, subject.Name, subject.Color).
		Scan(&subject.ID, &subject.CreatedAt); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Delete removes a subject and everything hanging off it in dependency
// order, inside one transaction: exam topics, exams, session topics,
// sessions, topics, then the subject itself.
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subject delete: %w", err)
	}

	steps := []struct {
		name  string
		query string
	}{
		{"exam topics", `DELETE FROM exam_topics WHERE exam_id IN (SELECT id FROM exams WHERE subject_id = $1)`},
		{"exams", `DELETE FROM exams WHERE subject_id = $1`},
		{"session topics", `DELETE FROM session_topics WHERE session_id IN (SELECT id FROM sessions WHERE subject_id = $1)`},
		{"sessions", `DELETE FROM sessions WHERE subject_id = $1`},
		{"topics", `DELETE FROM topics WHERE subject_id = $1`},
		{"subject", `DELETE FROM subjects WHERE id = $1`},
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subject delete: %w", err)
	}
	return nil
}
