// Package coach produces short coaching tips. A remote text service is used when one is
// configured; otherwise tips are derived from the user's stats.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/models"
)

// Coach returns a tip for the current state of the user's habits.
type Coach interface {
	Tip(ctx context.Context, habits []models.HabitWithProgress, stats models.HabitStats) (string, error)
}

// RuleCoach derives tips from stats without any network access.
type RuleCoach struct{}

func (RuleCoach) Tip(_ context.Context, habits []models.HabitWithProgress, stats models.HabitStats) (string, error) {
	if stats.TotalHabits == 0 {
		return "Start small: add one habit you can finish in under two minutes.", nil
	}

	if stats.TodayCompleted == stats.TotalHabits {
		return fmt.Sprintf("Every habit is done today. Your streaks add up to %d days, so protect them tomorrow.", stats.TotalStreak), nil
	}

	pending := make([]models.HabitWithProgress, 0, len(habits))
	for _, h := range habits {
		if !h.IsCompletedToday {
			pending = append(pending, h)
		}
	}
	// Longest streak at risk first
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].Streak > pending[j].Streak })

	if len(pending) > 0 && pending[0].Streak >= 3 {
		h := pending[0]
		return fmt.Sprintf("Your %d-day streak on %q is waiting. Do it next.", h.Streak, h.Name), nil
	}
	if len(pending) > 0 && pending[0].Goal > 1 {
		h := pending[0]
		left := h.Goal - h.TodayProgress
		return fmt.Sprintf("%q needs %d more %s today. Split it into small sessions.", h.Name, left, h.Unit), nil
	}
	if stats.CompletionRate >= 0.5 {
		return fmt.Sprintf("You are at %s today. Finish one more before the evening.", stats.TodayProgress), nil
	}
	return "Pick the easiest habit on your list and do it now. Momentum beats motivation.", nil
}

// RemoteCoach asks an HTTP text service for a tip and falls back to another coach on error.
type RemoteCoach struct {
	URL      string
	HTTP     *http.Client
	Fallback Coach
}

func NewRemoteCoach(url string, timeout time.Duration) *RemoteCoach {
	return &RemoteCoach{
		URL:      url,
		HTTP:     &http.Client{Timeout: timeout},
		Fallback: RuleCoach{},
	}
}

type tipRequest struct {
	Prompt string `json:"prompt"`
}

type tipResponse struct {
	Text string `json:"text"`
}

func (c *RemoteCoach) Tip(ctx context.Context, habits []models.HabitWithProgress, stats models.HabitStats) (string, error) {
	tip, err := c.remoteTip(ctx, habits, stats)
	if err == nil {
		return tip, nil
	}
	logger.Warn("coaching service unavailable, using local tip", "error", err)
	if c.Fallback == nil {
		return "", err
	}
	return c.Fallback.Tip(ctx, habits, stats)
}

func (c *RemoteCoach) remoteTip(ctx context.Context, habits []models.HabitWithProgress, stats models.HabitStats) (string, error) {
	body, err := json.Marshal(tipRequest{Prompt: Prompt(habits, stats)})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("coaching service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out tipResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode coaching response: %w", err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("coaching service returned an empty tip")
	}
	return strings.TrimSpace(out.Text), nil
}

// Prompt summarizes the habit state for the text service.
func Prompt(habits []models.HabitWithProgress, stats models.HabitStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give one short, encouraging habit coaching tip. Today: %s habits done, total streak %d days.\n",
		stats.TodayProgress, stats.TotalStreak)
	for _, h := range habits {
		status := "pending"
		if h.IsCompletedToday {
			status = "done"
		}
		fmt.Fprintf(&b, "- %s (%s): %d/%d %s, streak %d, %s\n",
			h.Name, h.Category, h.TodayProgress, h.Goal, h.Unit, h.Streak, status)
	}
	return b.String()
}
