package cli

import (
	"context"
	"fmt"
	"strings"
)

type MoodCmd struct {
	Add  MoodAddCmd  `cmd:"" help:"Record today's mood."`
	List MoodListCmd `cmd:"" help:"List recent mood entries." default:"1"`
}

// Mood entries are not cached; these commands need the server.
type MoodAddCmd struct {
	Mood int      `arg:"" help:"Mood from 1 (low) to 5 (great)."`
	Note []string `arg:"" optional:"" help:"Optional note."`
}

func (c *MoodAddCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		entry, err := s.Client.AddMood(cc, c.Mood, strings.Join(c.Note, " "))
		if err != nil {
			return err
		}
		fmt.Printf("✓ Mood %d recorded for %s\n", entry.Mood, entry.Date)
		return nil
	})
}

type MoodListCmd struct {
	Days int `help:"Number of days to show." default:"7"`
}

func (c *MoodListCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		entries, err := s.Client.ListMoods(cc, c.Days)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No mood entries yet.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %s\n", e.Date, moodBar(e.Mood), e.Note)
		}
		return nil
	})
}

func moodBar(mood int) string {
	if mood < 1 || mood > 5 {
		return fmt.Sprintf("%d", mood)
	}
	return strings.Repeat("●", mood) + strings.Repeat("○", 5-mood)
}
