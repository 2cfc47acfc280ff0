package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"

	"github.com/3grands/habitflow/internal/coach"
	"github.com/3grands/habitflow/internal/logger"
)

type CoachCmd struct {
	Plain bool `help:"Print the tip without markdown rendering."`
}

func (c *CoachCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		tip, err := c.tip(cc, s)
		if err != nil {
			return err
		}
		if c.Plain {
			fmt.Println(tip)
			return nil
		}
		out, err := glamour.Render(tip, "dark")
		if err != nil {
			logger.Debug("failed to render tip", "error", err)
			fmt.Println(tip)
			return nil
		}
		fmt.Print(out)
		return nil
	})
}

// tip asks the server and falls back to the local rules on cached data when offline.
func (c *CoachCmd) tip(ctx context.Context, s *Session) (string, error) {
	if s.Monitor.Online() {
		tip, err := s.Client.Tip(ctx)
		if err == nil {
			return tip, nil
		}
		logger.Warn("failed to fetch coaching tip", "error", err)
	}
	habits, err := s.Cache.Habits(ctx)
	if err != nil {
		return "", err
	}
	stats, err := s.Cache.Stats(ctx)
	if err != nil {
		return "", err
	}
	return coach.RuleCoach{}.Tip(ctx, habits, stats)
}
