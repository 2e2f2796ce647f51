package models

import "time"

// Exam is a dated assessment tied to a subject.
type Exam struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	SubjectID int64     `db:"subject_id" json:"subjectId"`
	Title     string    `db:"title" json:"title"`
	Date      time.Time `db:"date" json:"date"`
	Location  *string   `db:"location" json:"location,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ExamWithSubject is an exam row with its owning subject joined.
type ExamWithSubject struct {
	Exam
	SubjectName  string `db:"subject_name" json:"subjectName"`
	SubjectColor string `db:"subject_color" json:"subjectColor"`
}

// ExamView attaches the derived progress, borrowed from the owning
// subject's topic-completion ratio.
type ExamView struct {
	ExamWithSubject
	Progress int `json:"progress"`
}

// ExamTopic links an exam to a topic it covers.
type ExamTopic struct {
	ID        int64     `db:"id" json:"id"`
	ExamID    int64     `db:"exam_id" json:"examId"`
	TopicID   int64     `db:"topic_id" json:"topicId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ExamTopicDetail joins the linked topic's name and completion state.
type ExamTopicDetail struct {
	ExamTopic
	TopicName        string `db:"topic_name" json:"topicName"`
	TopicIsCompleted bool   `db:"topic_is_completed" json:"topicIsCompleted"`
}

// ExamDetail is a single exam with subject, progress and covered topics.
type ExamDetail struct {
	ExamWithSubject
	Progress int               `json:"progress"`
	Topics   []ExamTopicDetail `json:"topics"`
}
