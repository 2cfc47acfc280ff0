package habits

import (
	"testing"
	"time"

	"github.com/3grands/habitflow/internal/models"
)

func statsHabits(n int, created time.Time) []models.Habit {
	habits := make([]models.Habit, 0, n)
	for i := 1; i <= n; i++ {
		h := newHabit(1, i)
		h.ID = int64(i)
		h.CreatedAt = created
		habits = append(habits, h)
	}
	return habits
}

func TestComputeStatsTodayOnly(t *testing.T) {
	habits := statsHabits(5, now.AddDate(0, 0, -30))
	completions := []models.HabitCompletion{
		{HabitID: 1, Date: "2025-06-10", Progress: 1, IsCompleted: true},
		{HabitID: 2, Date: "2025-06-10", Progress: 1, IsCompleted: true},
		{HabitID: 3, Date: "2025-06-10", Progress: 1, IsCompleted: true},
		{HabitID: 4, Date: "2025-06-10", Progress: 0, IsCompleted: false},
	}

	stats, err := ComputeStats(habits, completions, "2025-06-10", 7, time.UTC)
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}

	if stats.CompletionRate != 0.6 {
		t.Errorf("completionRate = %v, want 0.6", stats.CompletionRate)
	}
	if stats.TodayCompleted != 3 || stats.TotalHabits != 5 {
		t.Errorf("todayCompleted = %d, totalHabits = %d", stats.TodayCompleted, stats.TotalHabits)
	}
	if stats.TodayProgress != "3/5" {
		t.Errorf("todayProgress = %q, want 3/5", stats.TodayProgress)
	}
	if stats.TotalStreak != 1+2+3+4+5 {
		t.Errorf("totalStreak = %d", stats.TotalStreak)
	}
	if len(stats.Weekly) != 7 {
		t.Fatalf("weekly window has %d days", len(stats.Weekly))
	}
	for _, d := range stats.Weekly[:6] {
		if d.Completed != 0 || d.Total != 5 {
			t.Errorf("day %s = %d/%d, want 0/5", d.Date, d.Completed, d.Total)
		}
	}
	if last := stats.Weekly[6]; last.Date != "2025-06-10" || last.Completed != 3 {
		t.Errorf("last day = %+v", last)
	}
}

func TestComputeStatsExcludesInactiveAndFutureHabits(t *testing.T) {
	habits := statsHabits(3, now.AddDate(0, 0, -30))
	habits[0].IsActive = false
	habits[1].CreatedAt = time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC)

	completions := []models.HabitCompletion{
		{HabitID: 1, Date: "2025-06-10", IsCompleted: true},
		{HabitID: 2, Date: "2025-06-10", IsCompleted: true},
	}

	stats, err := ComputeStats(habits, completions, "2025-06-10", 7, time.UTC)
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}

	if stats.TotalHabits != 2 || stats.TodayCompleted != 1 {
		t.Errorf("got %d/%d, want 1/2", stats.TodayCompleted, stats.TotalHabits)
	}
	if stats.Weekly[0].Total != 1 {
		t.Errorf("habit created later counted on %s", stats.Weekly[0].Date)
	}
	if stats.Weekly[4].Date != "2025-06-08" || stats.Weekly[4].Total != 2 {
		t.Errorf("creation day not counted: %+v", stats.Weekly[4])
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats, err := ComputeStats(nil, nil, "2025-06-10", 7, time.UTC)
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if stats.CompletionRate != 0 || stats.TodayProgress != "0/0" {
		t.Errorf("unexpected empty stats: %+v", stats)
	}
}

func TestDayOfRollover(t *testing.T) {
	done := time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)
	hp := models.HabitWithProgress{
		Habit:            newHabit(1, 3),
		Date:             "2025-06-09",
		IsCompletedToday: true,
		TodayProgress:    1,
		TodayCompletion:  &models.HabitCompletion{HabitID: 7, Date: "2025-06-09", Progress: 1, IsCompleted: true, CompletedAt: &done},
	}

	day := DayOf(hp, "2025-06-10")
	if day.Today != nil {
		t.Error("stale row carried into a new day")
	}
	if !day.YesterdayCompleted {
		t.Error("yesterday's completion was lost on rollover")
	}

	res := Complete(hp.Habit, day, now)
	if res.Habit.Streak != 4 {
		t.Errorf("streak = %d, want 4", res.Habit.Streak)
	}

	gap := DayOf(hp, "2025-06-12")
	if gap.YesterdayCompleted {
		t.Error("a two-day gap should not count as yesterday")
	}
}
