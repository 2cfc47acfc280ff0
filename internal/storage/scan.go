package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/models"
)

const (
	HabitColumns      = "id, user_id, name, category, frequency, goal, unit, reminder_time, streak, is_active, created_at"
	CompletionColumns = "id, habit_id, date, progress, is_completed, completed_at, streak_before"
	MoodColumns       = "id, user_id, mood, note, date, created_at"
)

// RowScanner is satisfied by *sql.Row and *sql.Rows
type RowScanner interface {
	Scan(dest ...interface{}) error
}

func ScanHabit(row RowScanner) (models.Habit, error) {
	var h models.Habit
	var category, frequency, createdAt string
	var reminder sql.NullString

	err := row.Scan(&h.ID, &h.UserID, &h.Name, &category, &frequency, &h.Goal, &h.Unit,
		&reminder, &h.Streak, &h.IsActive, &createdAt)
	if err != nil {
		return models.Habit{}, err
	}

	h.Category = constants.Category(category)
	h.Frequency = constants.Frequency(frequency)
	if reminder.Valid && reminder.String != "" {
		rt := reminder.String
		h.ReminderTime = &rt
	}
	h.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at for habit %d: %w", h.ID, err)
	}
	return h, nil
}

func ScanCompletion(row RowScanner) (models.HabitCompletion, error) {
	var c models.HabitCompletion
	var completedAt sql.NullString
	var streakBefore sql.NullInt64

	err := row.Scan(&c.ID, &c.HabitID, &c.Date, &c.Progress, &c.IsCompleted, &completedAt, &streakBefore)
	if err != nil {
		return models.HabitCompletion{}, err
	}

	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return models.HabitCompletion{}, fmt.Errorf("failed to parse completed_at for completion %d: %w", c.ID, err)
		}
		c.CompletedAt = &t
	}
	if streakBefore.Valid {
		v := int(streakBefore.Int64)
		c.StreakBefore = &v
	}
	return c, nil
}

func ScanMood(row RowScanner) (models.MoodEntry, error) {
	var m models.MoodEntry
	err := row.Scan(&m.ID, &m.UserID, &m.Mood, &m.Note, &m.Date, &m.CreatedAt)
	return m, err
}

// CompletionArgs returns the nullable column values of a completion row.
func CompletionArgs(c models.HabitCompletion) (completedAt sql.NullString, streakBefore sql.NullInt64) {
	if c.CompletedAt != nil {
		completedAt = sql.NullString{String: c.CompletedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	if c.StreakBefore != nil {
		streakBefore = sql.NullInt64{Int64: int64(*c.StreakBefore), Valid: true}
	}
	return completedAt, streakBefore
}

// ReminderArg returns the nullable reminder_time column value.
func ReminderArg(rt *string) sql.NullString {
	if rt == nil || *rt == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *rt, Valid: true}
}

// UpdateAssignments renders the SET clause of a partial habit update. placeholder
// returns the driver's bind marker for the n-th argument (1-based).
func UpdateAssignments(u models.HabitUpdate, placeholder func(n int) string) (string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, column+" = "+placeholder(len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Category != nil {
		add("category", string(*u.Category))
	}
	if u.Frequency != nil {
		add("frequency", string(*u.Frequency))
	}
	if u.Goal != nil {
		add("goal", *u.Goal)
	}
	if u.Unit != nil {
		add("unit", *u.Unit)
	}
	if u.Streak != nil {
		add("streak", *u.Streak)
	}
	if u.ReminderTime != nil {
		add("reminder_time", ReminderArg(u.ReminderTime))
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	return strings.Join(sets, ", "), args
}

// NotFoundIfNoRows maps sql.ErrNoRows to a not-found error.
func NotFoundIfNoRows(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(format, args...)
	}
	return err
}
