// Package service applies habit engine transitions against the server store.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/habits"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/storage"
	"github.com/3grands/habitflow/internal/utils"
	"github.com/3grands/habitflow/internal/validation"
)

// HabitService owns the server-side habit operations for the single fixed user
type HabitService struct {
	store  storage.Provider
	clock  utils.Clock
	loc    *time.Location
	userID int64

	// transitions read then write a habit and its completion row
	mu sync.Mutex
}

func NewHabitService(store storage.Provider, clock utils.Clock, loc *time.Location) *HabitService {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = utils.SystemClock(loc)
	}
	return &HabitService{
		store:  store,
		clock:  clock,
		loc:    loc,
		userID: constants.DefaultUserID,
	}
}

func (s *HabitService) today() string {
	return utils.DateIn(s.clock.Now(), s.loc)
}

func (s *HabitService) completion(ctx context.Context, habitID int64, date string) (*models.HabitCompletion, error) {
	c, err := s.store.GetCompletion(ctx, habitID, date)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// resolveDate checks a client-supplied calendar date. Empty means today; one day ahead
// is accepted for clients east of the server's timezone.
func (s *HabitService) resolveDate(date string) (string, error) {
	today := s.today()
	if date == "" {
		return today, nil
	}
	if !utils.ValidateDateFormat(date) {
		return "", apperrors.Validation("date must be YYYY-MM-DD")
	}
	latest, err := utils.AddDays(today, 1)
	if err != nil {
		return "", err
	}
	if date > latest {
		return "", apperrors.Validation("date %s is in the future", date)
	}
	return date, nil
}

func (s *HabitService) day(ctx context.Context, habitID int64, date string) (habits.Day, error) {
	yesterday, err := utils.Yesterday(date)
	if err != nil {
		return habits.Day{}, err
	}

	todayRow, err := s.completion(ctx, habitID, date)
	if err != nil {
		return habits.Day{}, err
	}
	yesterdayRow, err := s.completion(ctx, habitID, yesterday)
	if err != nil {
		return habits.Day{}, err
	}

	return habits.Day{
		Date:               date,
		Today:              todayRow,
		YesterdayCompleted: yesterdayRow != nil && yesterdayRow.IsCompleted,
	}, nil
}

// ListHabits returns every active habit joined with today's progress.
func (s *HabitService) ListHabits(ctx context.Context) ([]models.HabitWithProgress, error) {
	all, err := s.store.GetAllHabits(ctx, s.userID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	yesterday, err := utils.Yesterday(today)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.GetCompletionsInRange(ctx, s.userID, yesterday, today)
	if err != nil {
		return nil, err
	}

	todayRows := make(map[int64]*models.HabitCompletion)
	yesterdayDone := make(map[int64]bool)
	for i := range rows {
		switch rows[i].Date {
		case today:
			todayRows[rows[i].HabitID] = &rows[i]
		case yesterday:
			yesterdayDone[rows[i].HabitID] = rows[i].IsCompleted
		}
	}

	out := make([]models.HabitWithProgress, 0, len(all))
	for _, h := range all {
		out = append(out, habits.WithProgress(h, today, todayRows[h.ID], yesterdayDone[h.ID]))
	}
	return out, nil
}

// GetHabit returns one active habit joined with today's progress.
func (s *HabitService) GetHabit(ctx context.Context, id int64) (models.HabitWithProgress, error) {
	h, err := s.store.GetHabit(ctx, id)
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	day, err := s.day(ctx, id, s.today())
	if err != nil {
		return models.HabitWithProgress{}, err
	}
	return habits.WithProgress(h, day.Date, day.Today, day.YesterdayCompleted), nil
}

// CreateHabit validates and stores a new habit with a zero streak.
func (s *HabitService) CreateHabit(ctx context.Context, in models.NewHabit) (models.Habit, error) {
	in, err := validation.NormalizeNewHabit(in)
	if err != nil {
		return models.Habit{}, err
	}

	h, err := s.store.AddHabit(ctx, models.Habit{
		UserID:       s.userID,
		Name:         in.Name,
		Category:     in.Category,
		Frequency:    in.Frequency,
		Goal:         in.Goal,
		Unit:         in.Unit,
		ReminderTime: in.ReminderTime,
		IsActive:     true,
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return models.Habit{}, err
	}
	logger.Info("habit created", "id", h.ID, "name", h.Name)
	return h, nil
}

// UpdateHabit applies an allowlisted partial update.
func (s *HabitService) UpdateHabit(ctx context.Context, id int64, update models.HabitUpdate) (models.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.store.UpdateHabit(ctx, id, update)
	if err != nil {
		return models.Habit{}, err
	}
	logger.Debug("habit updated", "id", id)
	return h, nil
}

// DeleteHabit soft-deletes a habit.
func (s *HabitService) DeleteHabit(ctx context.Context, id int64) error {
	if err := s.store.DeactivateHabit(ctx, id); err != nil {
		return err
	}
	logger.Info("habit deactivated", "id", id)
	return nil
}

type transitionFn func(h models.Habit, day habits.Day, now time.Time) habits.Result

func (s *HabitService) transition(ctx context.Context, id int64, date string, fn transitionFn) (models.Transition, error) {
	date, err := s.resolveDate(date)
	if err != nil {
		return models.Transition{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.store.GetHabit(ctx, id)
	if err != nil {
		return models.Transition{}, err
	}
	day, err := s.day(ctx, id, date)
	if err != nil {
		return models.Transition{}, err
	}

	res := fn(h, day, s.clock.Now())
	if res.Changed && date < s.today() {
		// a later completed day already owns the streak
		later, err := s.completion(ctx, id, s.today())
		if err != nil {
			return models.Transition{}, err
		}
		if later != nil && later.IsCompleted {
			res.Habit.Streak = h.Streak
		}
	}
	if res.Changed {
		if err := s.store.SaveTransition(ctx, res.Habit, res.Completion); err != nil {
			return models.Transition{}, err
		}
	}
	return models.Transition{Habit: res.Habit, Completion: res.Completion}, nil
}

// Toggle completes or undoes today's completion.
func (s *HabitService) Toggle(ctx context.Context, id int64) (models.Transition, error) {
	return s.transition(ctx, id, "", habits.Toggle)
}

// Complete marks today as done; a no-op when already completed.
func (s *HabitService) Complete(ctx context.Context, id int64) (models.Transition, error) {
	return s.CompleteOn(ctx, id, "")
}

// CompleteOn marks date as done. Queued offline completions use it to land on the day
// they were recorded.
func (s *HabitService) CompleteOn(ctx context.Context, id int64, date string) (models.Transition, error) {
	return s.transition(ctx, id, date, habits.Complete)
}

// Undo reverts today's completion; a no-op when not completed.
func (s *HabitService) Undo(ctx context.Context, id int64) (models.Transition, error) {
	return s.UndoOn(ctx, id, "")
}

func (s *HabitService) UndoOn(ctx context.Context, id int64, date string) (models.Transition, error) {
	return s.transition(ctx, id, date, func(h models.Habit, day habits.Day, _ time.Time) habits.Result {
		return habits.Undo(h, day)
	})
}

// RecordProgress adds delta to today's progress.
func (s *HabitService) RecordProgress(ctx context.Context, id int64, delta int) (models.Transition, error) {
	return s.RecordProgressOn(ctx, id, delta, "")
}

func (s *HabitService) RecordProgressOn(ctx context.Context, id int64, delta int, date string) (models.Transition, error) {
	return s.transition(ctx, id, date, func(h models.Habit, day habits.Day, now time.Time) habits.Result {
		return habits.RecordProgress(h, day, delta, now)
	})
}

// Stats aggregates the weekly window ending today.
func (s *HabitService) Stats(ctx context.Context) (models.HabitStats, error) {
	all, err := s.store.GetAllHabits(ctx, s.userID)
	if err != nil {
		return models.HabitStats{}, err
	}

	today := s.today()
	start, err := utils.AddDays(today, -(constants.StatsWindowDays - 1))
	if err != nil {
		return models.HabitStats{}, err
	}
	rows, err := s.store.GetCompletionsInRange(ctx, s.userID, start, today)
	if err != nil {
		return models.HabitStats{}, err
	}

	return habits.ComputeStats(all, rows, today, constants.StatsWindowDays, s.loc)
}

// AddMood records today's mood.
func (s *HabitService) AddMood(ctx context.Context, mood int, note string) (models.MoodEntry, error) {
	note, err := validation.ValidateMood(mood, note)
	if err != nil {
		return models.MoodEntry{}, err
	}
	now := s.clock.Now()
	return s.store.AddMood(ctx, models.MoodEntry{
		UserID:    s.userID,
		Mood:      mood,
		Note:      note,
		Date:      utils.DateIn(now, s.loc),
		CreatedAt: now.UTC().Format(time.RFC3339),
	})
}

// ListMoods returns mood entries of the last n days, newest first.
func (s *HabitService) ListMoods(ctx context.Context, days int) ([]models.MoodEntry, error) {
	if days < 1 {
		days = constants.StatsWindowDays
	}
	today := s.today()
	start, err := utils.AddDays(today, -(days - 1))
	if err != nil {
		return nil, err
	}
	return s.store.GetMoods(ctx, s.userID, start, today)
}
