package models

import "time"

// SubjectProgress enriches a subject with its topic-completion ratio and
// session aggregates.
type SubjectProgress struct {
	Subject
	CompletedTopics int        `json:"completedTopics"`
	TotalTopics     int        `json:"totalTopics"`
	Progress        int        `json:"progress"`
	SessionCount    int        `json:"sessionCount"`
	TotalStudyTime  string     `json:"totalStudyTime"`
	LastStudied     *time.Time `json:"lastStudied"`
}

// TotalProgress is the topic-weighted ratio across all of a user's subjects.
type TotalProgress struct {
	CompletedTopics int `json:"completedTopics"`
	TotalTopics     int `json:"totalTopics"`
	Percentage      int `json:"percentage"`
}

// ProgressOverview is the aggregation engine's main output.
type ProgressOverview struct {
	Subjects      []SubjectProgress `json:"subjects"`
	TotalProgress TotalProgress     `json:"totalProgress"`
}
