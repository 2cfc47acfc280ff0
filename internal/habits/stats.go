package habits

import (
	"fmt"
	"time"

	"github.com/3grands/habitflow/internal/models"
	"github.com/3grands/habitflow/internal/utils"
)

// ComputeStats aggregates active habits over the window of calendar days ending today.
// Days are compared as YYYY-MM-DD strings; createdAt is converted with loc first.
func ComputeStats(habits []models.Habit, completions []models.HabitCompletion, today string, window int, loc *time.Location) (models.HabitStats, error) {
	days, err := utils.DateRange(today, window)
	if err != nil {
		return models.HabitStats{}, err
	}

	active := make(map[int64]models.Habit, len(habits))
	totalStreak := 0
	for _, h := range habits {
		if !h.IsActive {
			continue
		}
		active[h.ID] = h
		totalStreak += h.Streak
	}

	done := make(map[string]map[int64]bool, len(days))
	for _, c := range completions {
		if !c.IsCompleted {
			continue
		}
		if _, ok := active[c.HabitID]; !ok {
			continue
		}
		if done[c.Date] == nil {
			done[c.Date] = make(map[int64]bool)
		}
		done[c.Date][c.HabitID] = true
	}

	weekly := make([]models.DayStat, 0, len(days))
	for _, day := range days {
		total := 0
		for _, h := range active {
			if h.CreatedOn(loc) <= day {
				total++
			}
		}
		weekly = append(weekly, models.DayStat{
			Date:      day,
			Completed: len(done[day]),
			Total:     total,
		})
	}

	todayCompleted := len(done[today])
	stats := models.HabitStats{
		TodayProgress:  fmt.Sprintf("%d/%d", todayCompleted, len(active)),
		TotalHabits:    len(active),
		TotalStreak:    totalStreak,
		TodayCompleted: todayCompleted,
		Weekly:         weekly,
	}
	if len(active) > 0 {
		stats.CompletionRate = float64(todayCompleted) / float64(len(active))
	}
	return stats, nil
}

// WithProgress joins a habit with its completion rows for today and yesterday.
func WithProgress(h models.Habit, today string, todayRow *models.HabitCompletion, yesterdayDone bool) models.HabitWithProgress {
	hp := models.HabitWithProgress{
		Habit:              h,
		Date:               today,
		CompletedYesterday: yesterdayDone,
	}
	if todayRow != nil {
		row := *todayRow
		hp.TodayCompletion = &row
		hp.TodayProgress = row.Progress
		hp.IsCompletedToday = row.IsCompleted
	}
	return hp
}

// DayOf rebuilds the transition input from a joined habit. A row dated before today
// means the day rolled over: yesterday's outcome is the stale row's completion state.
func DayOf(hp models.HabitWithProgress, today string) Day {
	if hp.Date == "" || hp.Date == today {
		return Day{Date: today, Today: hp.TodayCompletion, YesterdayCompleted: hp.CompletedYesterday}
	}
	yesterday, err := utils.Yesterday(today)
	if err != nil {
		return Day{Date: today}
	}
	return Day{Date: today, YesterdayCompleted: hp.Date == yesterday && hp.IsCompletedToday}
}

// Apply folds a transition result back into a joined habit.
func Apply(day Day, res Result) models.HabitWithProgress {
	row := res.Completion
	return WithProgress(res.Habit, day.Date, &row, day.YesterdayCompleted)
}
