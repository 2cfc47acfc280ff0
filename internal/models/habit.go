package models

import (
	"time"

	"github.com/3grands/habitflow/internal/constants"
)

// Habit represents a user-defined recurring goal tracked per calendar day
type Habit struct {
	ID           int64               `json:"id"`
	UserID       int64               `json:"userId"`
	Name         string              `json:"name"`
	Category     constants.Category  `json:"category"`
	Frequency    constants.Frequency `json:"frequency"`
	Goal         int                 `json:"goal"`
	Unit         string              `json:"unit"`
	ReminderTime *string             `json:"reminderTime,omitempty"` // HH:MM format
	Streak       int                 `json:"streak"`
	IsActive     bool                `json:"isActive"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// CreatedOn returns the calendar date the habit was created on, in loc.
func (h Habit) CreatedOn(loc *time.Location) string {
	t := h.CreatedAt
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(constants.DateFormat)
}

// HabitCompletion is a habit's record for a single calendar day
type HabitCompletion struct {
	ID          int64      `json:"id,omitempty"`
	HabitID     int64      `json:"habitId"`
	Date        string     `json:"date"` // YYYY-MM-DD format
	Progress    int        `json:"progress"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
	// StreakBefore is the streak value at the moment the day flipped to completed
	StreakBefore *int `json:"streakBefore,omitempty"`
}

// HabitWithProgress is a habit joined with its progress for a given day
type HabitWithProgress struct {
	Habit
	TodayProgress      int              `json:"todayProgress"`
	IsCompletedToday   bool             `json:"isCompletedToday"`
	Date               string           `json:"date,omitempty"`
	CompletedYesterday bool             `json:"completedYesterday"`
	TodayCompletion    *HabitCompletion `json:"todayCompletion,omitempty"`
}

// Transition is a habit and its completion row after toggle, complete, undo or progress
type Transition struct {
	Habit      Habit           `json:"habit"`
	Completion HabitCompletion `json:"completion"`
}

// NewHabit holds the user-supplied fields of a habit about to be created
type NewHabit struct {
	Name         string              `json:"name"`
	Category     constants.Category  `json:"category"`
	Frequency    constants.Frequency `json:"frequency,omitempty"`
	Goal         int                 `json:"goal,omitempty"`
	Unit         string              `json:"unit,omitempty"`
	ReminderTime *string             `json:"reminderTime,omitempty"`
}

// HabitUpdate is a partial update; nil fields are left untouched
type HabitUpdate struct {
	Name         *string              `json:"name,omitempty"`
	Category     *constants.Category  `json:"category,omitempty"`
	Frequency    *constants.Frequency `json:"frequency,omitempty"`
	Goal         *int                 `json:"goal,omitempty"`
	Unit         *string              `json:"unit,omitempty"`
	Streak       *int                 `json:"streak,omitempty"`
	ReminderTime *string              `json:"reminderTime,omitempty"`
	IsActive     *bool                `json:"isActive,omitempty"`
}

// IsEmpty reports whether the update sets no fields.
func (u HabitUpdate) IsEmpty() bool {
	return u.Name == nil && u.Category == nil && u.Frequency == nil && u.Goal == nil &&
		u.Unit == nil && u.Streak == nil && u.ReminderTime == nil && u.IsActive == nil
}

// Apply copies every set field onto h.
func (u HabitUpdate) Apply(h *Habit) {
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.Category != nil {
		h.Category = *u.Category
	}
	if u.Frequency != nil {
		h.Frequency = *u.Frequency
	}
	if u.Goal != nil {
		h.Goal = *u.Goal
	}
	if u.Unit != nil {
		h.Unit = *u.Unit
	}
	if u.Streak != nil {
		h.Streak = *u.Streak
	}
	if u.ReminderTime != nil {
		if *u.ReminderTime == "" {
			h.ReminderTime = nil
		} else {
			rt := *u.ReminderTime
			h.ReminderTime = &rt
		}
	}
	if u.IsActive != nil {
		h.IsActive = *u.IsActive
	}
}
