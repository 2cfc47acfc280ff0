package coach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/models"
)

func habit(name string, goal, progress, streak int, done bool) models.HabitWithProgress {
	return models.HabitWithProgress{
		Habit: models.Habit{
			Name: name, Category: constants.CategoryHealth, Goal: goal, Unit: "glasses", Streak: streak, IsActive: true,
		},
		TodayProgress:    progress,
		IsCompletedToday: done,
	}
}

func TestRuleCoach(t *testing.T) {
	tests := []struct {
		name   string
		habits []models.HabitWithProgress
		stats  models.HabitStats
		want   string
	}{
		{name: "no habits", stats: models.HabitStats{}, want: "add one habit"},
		{
			name:   "all done",
			habits: []models.HabitWithProgress{habit("Read", 1, 1, 4, true)},
			stats:  models.HabitStats{TotalHabits: 1, TodayCompleted: 1, TotalStreak: 4},
			want:   "4 days",
		},
		{
			name:   "streak at risk",
			habits: []models.HabitWithProgress{habit("Read", 1, 0, 1, false), habit("Run", 1, 0, 6, false)},
			stats:  models.HabitStats{TotalHabits: 2},
			want:   `6-day streak on "Run"`,
		},
		{
			name:   "multi-unit goal",
			habits: []models.HabitWithProgress{habit("Water", 8, 5, 0, false)},
			stats:  models.HabitStats{TotalHabits: 1},
			want:   "3 more glasses",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tip, err := RuleCoach{}.Tip(context.Background(), tt.habits, tt.stats)
			require.NoError(t, err)
			assert.Contains(t, tip, tt.want)
		})
	}
}

func TestRemoteCoach(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tipRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Prompt
		_ = json.NewEncoder(w).Encode(tipResponse{Text: "  Drink a glass now. "})
	}))
	defer srv.Close()

	c := NewRemoteCoach(srv.URL, time.Second)
	habits := []models.HabitWithProgress{habit("Water", 8, 2, 1, false)}
	tip, err := c.Tip(context.Background(), habits, models.HabitStats{TodayProgress: "0/1", TotalHabits: 1})

	require.NoError(t, err)
	assert.Equal(t, "Drink a glass now.", tip)
	assert.True(t, strings.Contains(prompt, "Water (health): 2/8 glasses"))
}

func TestRemoteCoachFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRemoteCoach(srv.URL, time.Second)
	tip, err := c.Tip(context.Background(), nil, models.HabitStats{})

	require.NoError(t, err)
	assert.Contains(t, tip, "add one habit")

	c.Fallback = nil
	_, err = c.Tip(context.Background(), nil, models.HabitStats{})
	assert.Error(t, err)
}
