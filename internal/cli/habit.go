package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/models"
)

type HabitCmd struct {
	List     HabitListCmd     `cmd:"" help:"List today's habits." default:"1"`
	Add      HabitAddCmd      `cmd:"" help:"Add a new habit."`
	Toggle   HabitToggleCmd   `cmd:"" help:"Toggle today's completion."`
	Complete HabitCompleteCmd `cmd:"" help:"Mark a habit done for today."`
	Undo     HabitUndoCmd     `cmd:"" help:"Undo today's completion."`
	Progress HabitProgressCmd `cmd:"" help:"Record partial progress toward today's goal."`
	Edit     HabitEditCmd     `cmd:"" help:"Edit a habit."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Deactivate a habit."`
}

// withSession opens a session for fn and closes it afterwards.
func withSession(ctx *Context, fn func(c context.Context, s *Session) error) error {
	c := context.Background()
	s, err := ctx.OpenSession(c)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(c, s)
}

func formatHabit(h models.HabitWithProgress) string {
	mark := "[ ]"
	if h.IsCompletedToday {
		mark = "[✓]"
	}
	line := fmt.Sprintf("%s #%-4d %-24s %d/%d %-8s streak %-3d %s",
		mark, h.ID, h.Name, h.TodayProgress, h.Goal, h.Unit, h.Streak, h.Category)
	if h.ID < 0 {
		line += "  (not synced)"
	}
	return strings.TrimRight(line, " ")
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	return withSession(ctx, func(c context.Context, s *Session) error {
		habits, err := s.Cache.Habits(c)
		if err != nil {
			return err
		}
		if len(habits) == 0 {
			fmt.Println("No habits yet. Add one with 'habitflow habit add'.")
			return nil
		}
		for _, h := range habits {
			fmt.Println(formatHabit(h))
		}
		if state := s.Cache.State(); state != constants.StateSynced {
			fmt.Printf("\nState: %s (%d pending)\n", state, len(s.Cache.Pending()))
		}
		return nil
	})
}

type HabitAddCmd struct {
	Name      string `arg:"" help:"Habit name."`
	Category  string `help:"Category." enum:"health,fitness,mindfulness,learning,productivity,other" default:"other"`
	Frequency string `help:"How often the habit repeats." enum:"daily,weekly" default:"daily"`
	Goal      int    `help:"Daily goal." default:"1"`
	Unit      string `help:"Unit of the goal." default:"times"`
	Reminder  string `help:"Reminder time (HH:MM)."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	in := models.NewHabit{
		Name:      c.Name,
		Category:  constants.Category(c.Category),
		Frequency: constants.Frequency(c.Frequency),
		Goal:      c.Goal,
		Unit:      c.Unit,
	}
	if c.Reminder != "" {
		in.ReminderTime = &c.Reminder
	}

	return withSession(ctx, func(cc context.Context, s *Session) error {
		h, err := s.Cache.CreateHabit(cc, in)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added habit: %s\n", h.Name)
		s.pushPending(cc)
		return nil
	})
}

// mutate runs one habit transition through the cache and prints the result.
func mutate(ctx *Context, fn func(c context.Context, s *Session) (models.HabitWithProgress, error)) error {
	return withSession(ctx, func(c context.Context, s *Session) error {
		h, err := fn(c, s)
		if err != nil {
			return err
		}
		fmt.Println(formatHabit(h))
		s.pushPending(c)
		return nil
	})
}

type HabitToggleCmd struct {
	ID int64 `arg:"" help:"Habit ID."`
}

func (c *HabitToggleCmd) Run(ctx *Context) error {
	return mutate(ctx, func(cc context.Context, s *Session) (models.HabitWithProgress, error) {
		return s.Cache.Toggle(cc, c.ID)
	})
}

type HabitCompleteCmd struct {
	ID int64 `arg:"" help:"Habit ID."`
}

func (c *HabitCompleteCmd) Run(ctx *Context) error {
	return mutate(ctx, func(cc context.Context, s *Session) (models.HabitWithProgress, error) {
		return s.Cache.Complete(cc, c.ID)
	})
}

type HabitUndoCmd struct {
	ID int64 `arg:"" help:"Habit ID."`
}

func (c *HabitUndoCmd) Run(ctx *Context) error {
	return mutate(ctx, func(cc context.Context, s *Session) (models.HabitWithProgress, error) {
		return s.Cache.Undo(cc, c.ID)
	})
}

type HabitProgressCmd struct {
	ID    int64 `arg:"" help:"Habit ID."`
	Delta int   `short:"d" help:"Change in progress; negative values take progress back." default:"1"`
}

func (c *HabitProgressCmd) Run(ctx *Context) error {
	return mutate(ctx, func(cc context.Context, s *Session) (models.HabitWithProgress, error) {
		return s.Cache.RecordProgress(cc, c.ID, c.Delta)
	})
}

type HabitEditCmd struct {
	ID            int64  `arg:"" help:"Habit ID."`
	Name          string `help:"New name."`
	Category      string `help:"New category (health, fitness, mindfulness, learning, productivity, other)."`
	Frequency     string `help:"New frequency (daily, weekly)."`
	Goal          int    `help:"New daily goal."`
	Unit          string `help:"New unit."`
	Reminder      string `help:"New reminder time (HH:MM)."`
	ClearReminder bool   `help:"Remove the reminder."`
}

// fields collects only the flags that were given.
func (c *HabitEditCmd) fields() (map[string]json.RawMessage, error) {
	values := map[string]interface{}{}
	if c.Name != "" {
		values["name"] = c.Name
	}
	if c.Category != "" {
		values["category"] = c.Category
	}
	if c.Frequency != "" {
		values["frequency"] = c.Frequency
	}
	if c.Goal != 0 {
		values["goal"] = c.Goal
	}
	if c.Unit != "" {
		values["unit"] = c.Unit
	}
	if c.Reminder != "" {
		values["reminderTime"] = c.Reminder
	}
	if c.ClearReminder {
		values["reminderTime"] = ""
	}

	fields := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}
	return fields, nil
}

func (c *HabitEditCmd) Run(ctx *Context) error {
	fields, err := c.fields()
	if err != nil {
		return err
	}
	return withSession(ctx, func(cc context.Context, s *Session) error {
		h, err := s.Cache.UpdateHabit(cc, c.ID, fields)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Updated habit #%d: %s\n", h.ID, h.Name)
		s.pushPending(cc)
		return nil
	})
}

type HabitDeleteCmd struct {
	ID int64 `arg:"" help:"Habit ID."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		if err := s.Cache.DeleteHabit(cc, c.ID); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted habit #%d\n", c.ID)
		s.pushPending(cc)
		return nil
	})
}
