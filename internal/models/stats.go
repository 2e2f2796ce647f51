package models

import "time"

// StudyStats is the per-user running totals row. Counters are additive
// deltas bumped at completion time, never recomputed from source tables.
type StudyStats struct {
	ID                int64     `db:"id" json:"id"`
	UserID            int64     `db:"user_id" json:"userId"`
	TotalStudyTime    int       `db:"total_study_time" json:"totalStudyTime"`
	TopicsCompleted   int       `db:"topics_completed" json:"topicsCompleted"`
	SessionsCompleted int       `db:"sessions_completed" json:"sessionsCompleted"`
	LastUpdated       time.Time `db:"last_updated" json:"lastUpdated"`
}

// StatsSnapshot is the formatted dashboard view of StudyStats.
type StatsSnapshot struct {
	TotalStudyTime    string `json:"totalStudyTime"`
	TopicsCompleted   int    `json:"topicsCompleted"`
	SessionsCompleted int    `json:"sessionsCompleted"`
	AvgSessionLength  string `json:"avgSessionLength"`
}

// WeeklyWindow is one 7-day rollup window. WeekIndex counts windows back
// from now, so 0 is the most recent window.
type WeeklyWindow struct {
	WeekIndex    int                `json:"weekIndex"`
	SubjectHours map[string]float64 `json:"subjectHours"`
}

// WeeklyStats holds exactly four windows ordered oldest to newest.
type WeeklyStats struct {
	WeeklyData []WeeklyWindow `json:"weeklyData"`
}
