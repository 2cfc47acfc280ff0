package models

// DayStat is one calendar day of the weekly window
type DayStat struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// HabitStats aggregates progress across all active habits
type HabitStats struct {
	TodayProgress  string    `json:"todayProgress"` // "completed/total"
	TotalHabits    int       `json:"totalHabits"`
	TotalStreak    int       `json:"totalStreak"`
	TodayCompleted int       `json:"todayCompleted"`
	CompletionRate float64   `json:"completionRate"`
	Weekly         []DayStat `json:"weekly"`
}

// MoodEntry is a daily self-reported mood on a 1..5 scale
type MoodEntry struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Mood      int    `json:"mood"`
	Note      string `json:"note,omitempty"`
	Date      string `json:"date"`
	CreatedAt string `json:"createdAt"`
}
