package postgres

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/storage"
)

func placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) (models.Habit, error) {
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now()
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO habits (user_id, name, category, frequency, goal, unit, reminder_time, streak, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
		RETURNING `+storage.HabitColumns,
		habit.UserID, habit.Name, string(habit.Category), string(habit.Frequency), habit.Goal, habit.Unit,
		storage.ReminderArg(habit.ReminderTime), habit.Streak, habit.CreatedAt.UTC().Format(time.RFC3339))

	h, err := storage.ScanHabit(row)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to insert habit: %w", err)
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+storage.HabitColumns+" FROM habits WHERE id = $1 AND is_active", id)
	h, err := storage.ScanHabit(row)
	if err != nil {
		return models.Habit{}, storage.NotFoundIfNoRows(err, "habit %d", id)
	}
	return h, nil
}

func (s *Store) GetAllHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+storage.HabitColumns+" FROM habits WHERE user_id = $1 AND is_active ORDER BY created_at, id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := storage.ScanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) UpdateHabit(ctx context.Context, id int64, update models.HabitUpdate) (models.Habit, error) {
	if update.IsEmpty() {
		return models.Habit{}, apperrors.Validation("no valid fields to update")
	}

	sets, args := storage.UpdateAssignments(update, placeholder)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE habits SET %s WHERE id = $%d AND is_active RETURNING %s",
		sets, len(args), storage.HabitColumns)

	h, err := storage.ScanHabit(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return models.Habit{}, storage.NotFoundIfNoRows(err, "habit %d", id)
	}
	return h, nil
}

func (s *Store) DeactivateHabit(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE habits SET is_active = FALSE WHERE id = $1 AND is_active", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.NotFound("habit %d not found or already deleted", id)
	}
	return nil
}

// Completions

func (s *Store) GetCompletion(ctx context.Context, habitID int64, date string) (models.HabitCompletion, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+storage.CompletionColumns+" FROM habit_completions WHERE habit_id = $1 AND date = $2",
		habitID, date)
	c, err := storage.ScanCompletion(row)
	if err != nil {
		return models.HabitCompletion{}, storage.NotFoundIfNoRows(err, "completion for habit %d on %s", habitID, date)
	}
	return c, nil
}

func (s *Store) GetCompletionsInRange(ctx context.Context, userID int64, startDay, endDay string) ([]models.HabitCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.habit_id, c.date, c.progress, c.is_completed, c.completed_at, c.streak_before
		FROM habit_completions c
		JOIN habits h ON h.id = c.habit_id
		WHERE h.user_id = $1 AND h.is_active AND c.date >= $2 AND c.date <= $3
		ORDER BY c.date, c.habit_id`, userID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []models.HabitCompletion{}
	for rows.Next() {
		c, err := storage.ScanCompletion(rows)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

func (s *Store) SaveTransition(ctx context.Context, habit models.Habit, completion models.HabitCompletion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		"UPDATE habits SET streak = $1 WHERE id = $2 AND is_active", habit.Streak, habit.ID)
	if err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return err
	} else if rows == 0 {
		return apperrors.NotFound("habit %d", habit.ID)
	}

	completedAt, streakBefore := storage.CompletionArgs(completion)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO habit_completions (habit_id, date, progress, is_completed, completed_at, streak_before)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (habit_id, date) DO UPDATE SET
			progress = EXCLUDED.progress,
			is_completed = EXCLUDED.is_completed,
			completed_at = EXCLUDED.completed_at,
			streak_before = EXCLUDED.streak_before`,
		habit.ID, completion.Date, completion.Progress, completion.IsCompleted, completedAt, streakBefore)
	if err != nil {
		return fmt.Errorf("failed to save completion: %w", err)
	}

	return tx.Commit()
}

// Mood

func (s *Store) AddMood(ctx context.Context, entry models.MoodEntry) (models.MoodEntry, error) {
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO mood_entries (user_id, mood, note, date, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		entry.UserID, entry.Mood, entry.Note, entry.Date, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return models.MoodEntry{}, fmt.Errorf("failed to insert mood entry: %w", err)
	}
	return entry, nil
}

func (s *Store) GetMoods(ctx context.Context, userID int64, startDay, endDay string) ([]models.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+storage.MoodColumns+" FROM mood_entries WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date DESC, id DESC",
		userID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.MoodEntry{}
	for rows.Next() {
		m, err := storage.ScanMood(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}
