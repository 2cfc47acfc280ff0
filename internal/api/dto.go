package api

import (
	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/models"
)

// CreateHabitRequest is the body of POST /api/habits
type CreateHabitRequest struct {
	Name         string  `json:"name" binding:"not_empty,max=200"`
	Category     string  `json:"category" binding:"category"`
	Frequency    string  `json:"frequency" binding:"frequency"`
	Goal         int     `json:"goal" binding:"gte=0"`
	Unit         string  `json:"unit" binding:"max=100"`
	ReminderTime *string `json:"reminderTime" binding:"omitempty,hhmm"`
}

func (r CreateHabitRequest) toModel() models.NewHabit {
	return models.NewHabit{
		Name:         r.Name,
		Category:     constants.Category(r.Category),
		Frequency:    constants.Frequency(r.Frequency),
		Goal:         r.Goal,
		Unit:         r.Unit,
		ReminderTime: r.ReminderTime,
	}
}

// DayRequest is the optional body of POST /api/habits/:id/complete and /undo; an empty
// date means today
type DayRequest struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ProgressRequest is the body of POST /api/habits/:id/progress; delta defaults to 1
type ProgressRequest struct {
	Delta *int   `json:"delta" binding:"omitempty,gte=-1000,lte=1000"`
	Date  string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

// MoodRequest is the body of POST /api/mood
type MoodRequest struct {
	Mood int    `json:"mood" binding:"gte=1,lte=5"`
	Note string `json:"note" binding:"max=2000"`
}

// TipResponse is the body of GET /api/coaching/tip
type TipResponse struct {
	Tip string `json:"tip"`
}
