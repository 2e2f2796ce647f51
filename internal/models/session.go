package models

import "time"

// SessionStatus is derived at read time and never persisted.
type SessionStatus string

const (
	StatusUpcoming  SessionStatus = "upcoming"
	StatusOngoing   SessionStatus = "ongoing"
	StatusCompleted SessionStatus = "completed"
)

// Session is a scheduled block of study time tied to a subject. The topic
// column is a free-text label, distinct from the Topic entity.
type Session struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"userId"`
	SubjectID     int64      `db:"subject_id" json:"subjectId"`
	Topic         string     `db:"topic" json:"topic"`
	Date          string     `db:"date" json:"date"`
	StartTime     time.Time  `db:"start_time" json:"startTime"`
	EndTime       time.Time  `db:"end_time" json:"endTime"`
	DurationHours float64    `db:"duration_hours" json:"durationHours"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
}

// StatusAt derives the session status for the given instant.
func (s *Session) StatusAt(now time.Time) SessionStatus {
	if s.CompletedAt != nil {
		return StatusCompleted
	}
	if !now.Before(s.StartTime) && !now.After(s.EndTime) {
		return StatusOngoing
	}
	return StatusUpcoming
}

// SessionWithSubject is a session row with its owning subject joined.
type SessionWithSubject struct {
	Session
	SubjectName  string `db:"subject_name" json:"subjectName"`
	SubjectColor string `db:"subject_color" json:"subjectColor"`
}

// SessionView is the list representation including the derived status.
type SessionView struct {
	SessionWithSubject
	Status SessionStatus `json:"status"`
}

// TodaySession enriches a session with its topic completion counts.
type TodaySession struct {
	SessionWithSubject
	Status               SessionStatus `json:"status"`
	TotalTopicsCount     int           `db:"total_topics_count" json:"totalTopicsCount"`
	CompletedTopicsCount int           `db:"completed_topics_count" json:"completedTopicsCount"`
}

// SessionTopic links a session to a topic covered during it.
type SessionTopic struct {
	ID          int64      `db:"id" json:"id"`
	SessionID   int64      `db:"session_id" json:"sessionId"`
	TopicID     int64      `db:"topic_id" json:"topicId"`
	IsCompleted bool       `db:"is_completed" json:"isCompleted"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// SessionTopicDetail joins the linked topic's name.
type SessionTopicDetail struct {
	SessionTopic
	TopicName string `db:"topic_name" json:"topicName"`
}

// SessionDetail is a single session with subject and covered topics.
type SessionDetail struct {
	SessionWithSubject
	Status SessionStatus        `json:"status"`
	Topics []SessionTopicDetail `json:"topics"`
}

// SessionFilter captures the supported listing filters.
type SessionFilter struct {
	SubjectID int64
	Status    SessionStatus
}

// SubjectSessionStats is a per-subject aggregate over the sessions table.
type SubjectSessionStats struct {
	SubjectID    int64      `db:"subject_id"`
	SessionCount int        `db:"session_count"`
	TotalHours   float64    `db:"total_hours"`
	LastStudied  *time.Time `db:"last_studied"`
}
