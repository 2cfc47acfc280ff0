package sqlite

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/storage"
)

func placeholder(int) string { return "?" }

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) (models.Habit, error) {
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = time.Now()
	}
	habit.IsActive = true

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (user_id, name, category, frequency, goal, unit, reminder_time, streak, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.UserID, habit.Name, string(habit.Category), string(habit.Frequency), habit.Goal, habit.Unit,
		storage.ReminderArg(habit.ReminderTime), habit.Streak, true, habit.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to insert habit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Habit{}, err
	}
	return s.GetHabit(ctx, id)
}

func (s *Store) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+storage.HabitColumns+" FROM habits WHERE id = ? AND is_active = ?", id, true)
	h, err := storage.ScanHabit(row)
	if err != nil {
		return models.Habit{}, storage.NotFoundIfNoRows(err, "habit %d", id)
	}
	return h, nil
}

func (s *Store) GetAllHabits(ctx context.Context, userID int64) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+storage.HabitColumns+" FROM habits WHERE user_id = ? AND is_active = ? ORDER BY created_at, id",
		userID, true)
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
	args = append(args, id, true)

	result, err := s.db.ExecContext(ctx,
		"UPDATE habits SET "+sets+" WHERE id = ? AND is_active = ?", args...)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to update habit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return models.Habit{}, err
	}
	if rows == 0 {
		return models.Habit{}, apperrors.NotFound("habit %d", id)
	}

	if update.IsActive != nil && !*update.IsActive {
		return s.getHabitAny(ctx, id)
	}
	return s.GetHabit(ctx, id)
}

func (s *Store) getHabitAny(ctx context.Context, id int64) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+storage.HabitColumns+" FROM habits WHERE id = ?", id)
	h, err := storage.ScanHabit(row)
	if err != nil {
		return models.Habit{}, storage.NotFoundIfNoRows(err, "habit %d", id)
	}
	return h, nil
}

func (s *Store) DeactivateHabit(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE habits SET is_active = ? WHERE id = ? AND is_active = ?", false, id, true)
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
		"SELECT "+storage.CompletionColumns+" FROM habit_completions WHERE habit_id = ? AND date = ?",
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
		WHERE h.user_id = ? AND h.is_active = ? AND c.date >= ? AND c.date <= ?
		ORDER BY c.date, c.habit_id`, userID, true, startDay, endDay)
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
		"UPDATE habits SET streak = ? WHERE id = ? AND is_active = ?", habit.Streak, habit.ID, true)
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
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit_id, date) DO UPDATE SET
			progress = excluded.progress,
			is_completed = excluded.is_completed,
			completed_at = excluded.completed_at,
			streak_before = excluded.streak_before`,
		habit.ID, completion.Date, completion.Progress, completion.IsCompleted, completedAt, streakBefore)
	if err != nil {
		return fmt.Errorf("failed to save completion: %w", err)
	}

	return tx.Commit()
}
