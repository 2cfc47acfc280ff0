package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/3grands/habitflow/internal/constants"
)

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		stats, err := s.Cache.Stats(cc)
		if err != nil {
			return err
		}

		fmt.Printf("Today:        %s (%.0f%%)\n", stats.TodayProgress, stats.CompletionRate*100)
		fmt.Printf("Habits:       %d\n", stats.TotalHabits)
		fmt.Printf("Total streak: %d\n", stats.TotalStreak)
		if len(stats.Weekly) > 0 {
			fmt.Println("\nLast 7 days:")
			for _, d := range stats.Weekly {
				fmt.Printf("  %s  %d/%d\n", d.Date, d.Completed, d.Total)
			}
		}
		return nil
	})
}

type StatusCmd struct {
	Verbose bool `short:"v" help:"List every pending action."`
}

func (c *StatusCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		state := s.Cache.State()
		pending := s.Cache.Pending()

		fmt.Printf("Server:     %s\n", s.Client.BaseURL())
		fmt.Printf("State:      %s\n", state)
		if last := s.Cache.LastSync(); last.IsZero() {
			fmt.Println("Last sync:  never")
		} else {
			fmt.Printf("Last sync:  %s (%s ago)\n", last.Format(time.RFC3339), time.Since(last).Round(time.Second))
		}
		fmt.Printf("Pending:    %d\n", len(pending))

		if c.Verbose {
			for _, a := range pending {
				habit := "-"
				if a.HabitID != nil {
					habit = fmt.Sprintf("#%d", *a.HabitID)
				}
				at := time.UnixMilli(a.Timestamp).Format(constants.DateFormat + " " + constants.TimeFormat)
				fmt.Printf("  %s  %-15s %-6s %s\n", at, a.Type, habit, a.ID)
			}
		}
		return nil
	})
}
