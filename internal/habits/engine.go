// Package habits holds the pure habit state transitions: completion, undo, progress and
// stats aggregation. Nothing here performs I/O; callers load the rows, apply a transition
// and persist the result.
package habits

import (
	"time"

	"github.com/3grands/habitflow/internal/models"
)

// Day is what a transition needs to know about the calendar around "today".
type Day struct {
	// Date is today's calendar date (YYYY-MM-DD) in the caller's timezone
	Date string
	// Today is the completion row for Date, nil if none exists yet
	Today *models.HabitCompletion
	// YesterdayCompleted reports whether the previous calendar day was completed
	YesterdayCompleted bool
}

// Result is the outcome of a transition.
type Result struct {
	Habit      models.Habit
	Completion models.HabitCompletion
	// Changed is false when the transition was a no-op
	Changed bool
}

// IsCompleted reports whether today's row exists and is completed.
func (d Day) IsCompleted() bool {
	return d.Today != nil && d.Today.IsCompleted
}

func (d Day) progress() int {
	if d.Today == nil {
		return 0
	}
	return d.Today.Progress
}

func (d Day) row(habitID int64) models.HabitCompletion {
	if d.Today == nil {
		return models.HabitCompletion{HabitID: habitID, Date: d.Date}
	}
	c := *d.Today
	c.HabitID = habitID
	if c.Date == "" {
		c.Date = d.Date
	}
	return c
}

// Toggle completes an incomplete day and undoes a completed one.
func Toggle(h models.Habit, day Day, now time.Time) Result {
	if day.IsCompleted() {
		return Undo(h, day)
	}
	return Complete(h, day, now)
}

// Complete marks today as done. The streak continues if yesterday was completed and
// restarts at 1 otherwise. Completing an already completed day is a no-op.
func Complete(h models.Habit, day Day, now time.Time) Result {
	c := day.row(h.ID)
	if c.IsCompleted {
		return Result{Habit: h, Completion: c}
	}

	before := h.Streak
	completedAt := now
	c.Progress = h.Goal
	c.IsCompleted = true
	c.CompletedAt = &completedAt
	c.StreakBefore = &before

	if day.YesterdayCompleted {
		h.Streak = before + 1
	} else {
		h.Streak = 1
	}

	return Result{Habit: h, Completion: c, Changed: true}
}

// Undo reverts a completed day. The streak returns to the value captured on completion,
// or drops by one when no value was captured. Undoing an incomplete day is a no-op.
func Undo(h models.Habit, day Day) Result {
	c := day.row(h.ID)
	if !c.IsCompleted {
		return Result{Habit: h, Completion: c}
	}

	if c.StreakBefore != nil {
		h.Streak = *c.StreakBefore
	} else if h.Streak > 0 {
		h.Streak--
	}

	c.Progress = 0
	c.IsCompleted = false
	c.CompletedAt = nil
	c.StreakBefore = nil

	return Result{Habit: h, Completion: c, Changed: true}
}

// RecordProgress adds delta to today's progress, clamped to [0, goal]. Reaching the goal
// completes the day; falling below it after completion counts as one undo.
func RecordProgress(h models.Habit, day Day, delta int, now time.Time) Result {
	current := day.progress()
	next := clamp(current+delta, 0, h.Goal)

	switch {
	case !day.IsCompleted() && next >= h.Goal:
		return Complete(h, day, now)
	case day.IsCompleted() && next < h.Goal:
		res := Undo(h, day)
		res.Completion.Progress = next
		return res
	}

	c := day.row(h.ID)
	if next == current && day.Today != nil {
		return Result{Habit: h, Completion: c}
	}
	c.Progress = next
	return Result{Habit: h, Completion: c, Changed: next != current}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
