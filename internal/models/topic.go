package models

import "time"

// Topic is a learnable unit within a subject. completed_at is set exactly
// once, when is_completed transitions to true.
type Topic struct {
	ID          int64      `db:"id" json:"id"`
	SubjectID   int64      `db:"subject_id" json:"subjectId"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	IsCompleted bool       `db:"is_completed" json:"isCompleted"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// TopicCounts is a per-subject aggregate over the topics table.
type TopicCounts struct {
	SubjectID       int64 `db:"subject_id"`
	CompletedTopics int   `db:"completed_topics"`
	TotalTopics     int   `db:"total_topics"`
}
