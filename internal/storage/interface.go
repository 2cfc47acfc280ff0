package storage

import (
	"context"
	"database/sql"

	"github.com/3grands/habitflow/internal/models"
)

// Provider is the server-side persistence layer. Habit lookups only ever see active
// habits; a deactivated habit behaves as not found.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) (models.Habit, error)
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
	GetAllHabits(ctx context.Context, userID int64) ([]models.Habit, error)
	UpdateHabit(ctx context.Context, id int64, update models.HabitUpdate) (models.Habit, error)
	DeactivateHabit(ctx context.Context, id int64) error

	// Completions
	GetCompletion(ctx context.Context, habitID int64, date string) (models.HabitCompletion, error)
	GetCompletionsInRange(ctx context.Context, userID int64, startDay, endDay string) ([]models.HabitCompletion, error)
	// SaveTransition stores a habit's new streak and its completion row atomically
	SaveTransition(ctx context.Context, habit models.Habit, completion models.HabitCompletion) error

	// Mood
	AddMood(ctx context.Context, entry models.MoodEntry) (models.MoodEntry, error)
	GetMoods(ctx context.Context, userID int64, startDay, endDay string) ([]models.MoodEntry, error)

	// Utils
	GetConfigPath() string
	GetDB() *sql.DB
}
