package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/studyrhythm/studyrhythm-api/internal/models"
)

// StatsRepository handles persistence for the per-user study_stats row.
// Counter increments happen inside the topic and session completion
// transactions; this repository only reads and lazily seeds the row.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new repository instance.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsColumns = `id, user_id, total_study_time, topics_completed, sessions_completed, last_updated`

// GetOrCreate returns the user's stats row, inserting a zeroed one on
// first read.
func (r *StatsRepository) GetOrCreate(ctx context.Context, userID int64) (*models.StudyStats, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_stats WHERE user_id = $1`, statsColumns)
	var stats models.StudyStats
	err := r.db.GetContext(ctx, &stats, query, userID)
	if err == nil {
		return &stats, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get study stats: %w", err)
	}

	insert := fmt.Sprintf(`INSERT INTO study_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING RETURNING %s`, statsColumns)
	err = r.db.GetContext(ctx, &stats, insert, userID)
	if err == nil {
		return &stats, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("create study stats: %w", err)
	}

	// Lost the insert race; the row exists now.
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("reload study stats: %w", err)
	}
	return &stats, nil
}
