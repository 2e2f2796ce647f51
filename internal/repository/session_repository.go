package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

// SessionRepository handles persistence for study sessions and their
// session_topics join rows.
type SessionRepository struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

// NewSessionRepository creates a new repository instance.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var sessionColumns = []string{
	"s.id",
	"COALESCE(s.user_id, 0) AS user_id",
	"s.subject_id",
	"s.topic",
	"s.date",
	"s.start_time",
	"s.end_time",
	"s.duration_hours",
	"s.notes",
	"s.completed_at",
	"s.created_at",
	"sub.name AS subject_name",
	"sub.color AS subject_color",
}

// ListByUser returns the user's sessions newest-date first, optionally
// narrowed to a single subject. Status filtering happens at read time in
// the service since status is derived, not stored.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, subjectID int64) ([]models.SessionWithSubject, error) {
	builder := r.psql.Select(sessionColumns...).
		From("sessions s").
		Join("subjects sub ON sub.id = s.subject_id").
		Where(sq.Eq{"s.user_id": userID}).
		OrderBy("s.date DESC", "s.start_time DESC")

	if subjectID > 0 {
		builder = builder.Where(sq.Eq{"s.subject_id": subjectID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session list query: %w", err)
	}

	sessions := []models.SessionWithSubject{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// ListByDateRange returns the user's sessions with date in [from, to),
// ordered chronologically. Dates compare lexically in YYYY-MM-DD form.
func (r *SessionRepository) ListByDateRange(ctx context.Context, userID int64, from, to string) ([]models.SessionWithSubject, error) {
	builder := r.psql.Select(sessionColumns...).
		From("sessions s").
		Join("subjects sub ON sub.id = s.subject_id").
		Where(sq.Eq{"s.user_id": userID}).
		Where(sq.GtOrEq{"s.date": from}).
		Where(sq.Lt{"s.date": to}).
		OrderBy("s.date ASC", "s.start_time ASC")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session range query: %w", err)
	}

	sessions := []models.SessionWithSubject{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions by range: %w", err)
	}
	return sessions, nil
}

// ListToday returns the user's sessions for the given date with their
// session_topics completion counts, earliest start first.
func (r *SessionRepository) ListToday(ctx context.Context, userID int64, date string) ([]models.TodaySession, error) {
	const query = `SELECT s.id, COALESCE(s.user_id, 0) AS user_id, s.subject_id, s.topic, s.date, s.start_time, s.end_time, s.duration_hours, s.notes, s.completed_at, s.created_at,
sub.name AS subject_name, sub.color AS subject_color,
COUNT(st.id) AS total_topics_count,
COUNT(st.id) FILTER (WHERE st.is_completed) AS completed_topics_count
FROM sessions s
JOIN subjects sub ON sub.id = s.subject_id
LEFT JOIN session_topics st ON st.session_id = s.id
WHERE s.user_id = $1 AND s.date = $2
GROUP BY s.id, sub.name, sub.color
ORDER BY s.start_time ASC`

	sessions := []models.TodaySession{}
	if err := r.db.SelectContext(ctx, &sessions, query, userID, date); err != nil {
		return nil, fmt.Errorf("list today sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session with its owning subject joined.
func (r *SessionRepository) FindByID(ctx context.Context, id int64) (*models.SessionWithSubject, error) {
	builder := r.psql.Select(sessionColumns...).
		From("sessions s").
		Join("subjects sub ON sub.id = s.subject_id").
		Where(sq.Eq{"s.id": id})

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}

	var session models.SessionWithSubject
	if err := r.db.GetContext(ctx, &session, query, args...); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create persists a new session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `INSERT INTO sessions (user_id, subject_id, topic, date, start_time, end_time, duration_hours, notes) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query,
		session.UserID,
		session.SubjectID,
		session.Topic,
		session.Date,
		session.StartTime,
		session.EndTime,
		session.DurationHours,
		session.Notes,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Complete sets completed_at and bumps the user's sessions_completed and
// total_study_time counters in the same transaction. The duration is added
// exactly once: re-completion returns ErrAlreadyCompleted.
func (r *SessionRepository) Complete(ctx context.Context, id int64, now time.Time) (*models.Session, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session complete: %w", err)
	}

	var session models.Session
	const selectQuery = `SELECT id, COALESCE(user_id, 0) AS user_id, subject_id, topic, date, start_time, end_time, duration_hours, notes, completed_at, created_at FROM sessions WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &session, selectQuery, id); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if session.CompletedAt != nil {
		_ = tx.Rollback()
		return nil, ErrAlreadyCompleted
	}

	if _, err := tx.ExecContext(ctx, `UPDATE sessions SET completed_at = $2 WHERE id = $1`, id, now); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("complete session: %w", err)
	}

	if session.UserID > 0 {
		minutes := int(math.Round(session.DurationHours * 60))
		const statsQuery = `INSERT INTO study_stats (user_id, total_study_time, topics_completed, sessions_completed, last_updated)
VALUES ($1, $2, 0, 1, $3)
ON CONFLICT (user_id) DO UPDATE SET sessions_completed = study_stats.sessions_completed + 1, total_study_time = study_stats.total_study_time + $2, last_updated = $3`
		if _, err := tx.ExecContext(ctx, statsQuery, session.UserID, minutes, now); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("bump session stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session complete: %w", err)
	}

	session.CompletedAt = &now
	return &session, nil
}

// Delete removes a session and its session_topics rows transactionally.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_topics WHERE session_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete session topics: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session delete: %w", err)
	}
	return nil
}

// AttachTopic links a topic to a session.
func (r *SessionRepository) AttachTopic(ctx context.Context, st *models.SessionTopic) error {
	const query = `INSERT INTO session_topics (session_id, topic_id) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, st.SessionID, st.TopicID).
		Scan(&st.ID, &st.CreatedAt); err != nil {
		return fmt.Errorf("attach session topic: %w", err)
	}
	return nil
}

// ListTopics returns the topics covered by a session.
func (r *SessionRepository) ListTopics(ctx context.Context, sessionID int64) ([]models.SessionTopicDetail, error) {
	const query = `SELECT st.id, st.session_id, st.topic_id, st.is_completed, st.completed_at, st.created_at, t.name AS topic_name FROM session_topics st JOIN topics t ON t.id = st.topic_id WHERE st.session_id = $1 ORDER BY t.name ASC`
	topics := []models.SessionTopicDetail{}
	if err := r.db.SelectContext(ctx, &topics, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session topics: %w", err)
	}
	return topics, nil
}

// StatsByUser returns session count, summed hours and the latest completed
// start time grouped by subject.
func (r *SessionRepository) StatsByUser(ctx context.Context, userID int64) ([]models.SubjectSessionStats, error) {
	const query = `SELECT subject_id, COUNT(*) AS session_count, COALESCE(SUM(duration_hours), 0) AS total_hours, MAX(start_time) FILTER (WHERE completed_at IS NOT NULL) AS last_studied FROM sessions WHERE user_id = $1 GROUP BY subject_id`
	stats := []models.SubjectSessionStats{}
	if err := r.db.SelectContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("session stats by user: %w", err)
	}
	return stats, nil
}
