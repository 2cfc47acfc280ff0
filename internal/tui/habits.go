package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/3grands/habitflow/internal/models"
)

type habitItem struct {
	habit models.HabitWithProgress
}

func (i habitItem) Title() string {
	mark := "[ ]"
	if i.habit.IsCompletedToday {
		mark = doneStyle.Render("[x]")
	}
	return fmt.Sprintf("%s %s", mark, i.habit.Name)
}

func (i habitItem) Description() string {
	desc := fmt.Sprintf("%d/%d %s · streak %d · %s",
		i.habit.TodayProgress, i.habit.Goal, i.habit.Unit, i.habit.Streak, i.habit.Category)
	if i.habit.ID < 0 {
		desc += " · not synced"
	}
	return desc
}

func (i habitItem) FilterValue() string { return i.habit.Name }

// toItems keeps the list order the server returned.
func toItems(habits []models.HabitWithProgress) []list.Item {
	items := make([]list.Item, len(habits))
	for i, h := range habits {
		items[i] = habitItem{habit: h}
	}
	return items
}
