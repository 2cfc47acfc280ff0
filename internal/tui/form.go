package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/models"
)

// HabitFormModel backs the add-habit form fields
type HabitFormModel struct {
	Name     string
	Category constants.Category
	Goal     string
	Unit     string
}

func NewHabitForm(fm *HabitFormModel) *huh.Form {
	options := make([]huh.Option[constants.Category], 0, len(constants.Categories))
	for _, c := range constants.Categories {
		options = append(options, huh.NewOption(string(c), c))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					if len(s) > constants.MaxNameLength {
						return fmt.Errorf("name must be at most %d characters", constants.MaxNameLength)
					}
					return nil
				}),
			huh.NewSelect[constants.Category]().
				Title("Category").
				Options(options...).
				Value(&fm.Category),
			huh.NewInput().
				Title("Daily goal").
				Value(&fm.Goal).
				Validate(validateGoal),
			huh.NewInput().
				Title("Unit").
				Placeholder(constants.DefaultUnit).
				Value(&fm.Unit),
		),
	).WithTheme(huh.ThemeDracula())
}

func validateGoal(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("goal must be a number")
	}
	if i < 1 {
		return fmt.Errorf("goal must be at least 1")
	}
	return nil
}

// NewHabit converts the form into a create request. The form has already validated goal.
func (fm HabitFormModel) NewHabit() models.NewHabit {
	in := models.NewHabit{
		Name:     strings.TrimSpace(fm.Name),
		Category: fm.Category,
		Unit:     strings.TrimSpace(fm.Unit),
	}
	if goal, err := strconv.Atoi(strings.TrimSpace(fm.Goal)); err == nil {
		in.Goal = goal
	}
	return in
}
