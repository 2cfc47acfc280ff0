package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/models"
)

type loadedMsg struct {
	habits []models.HabitWithProgress
	stats  models.HabitStats
	err    error
}

type actionDoneMsg struct {
	status string
	err    error
}

func (m Model) loadCmd() tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		habits, err := backend.Habits(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		stats, err := backend.Stats(ctx)
		return loadedMsg{habits: habits, stats: stats, err: err}
	}
}

// actionCmd runs fn against the backend and reports status on success.
func actionCmd(status string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: status}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.stats = msg.stats
		cmd := m.list.SetItems(toItems(msg.habits))
		return m, cmd

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		return m, m.loadCmd()
	}

	switch m.state {
	case stateAdd:
		return m.updateAdd(msg)
	case stateConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m.updateList(msg)
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(keyMsg, m.keys.Refresh):
		m.loading = true
		return m, m.loadCmd()
	case key.Matches(keyMsg, m.keys.Add):
		m.habitForm = &HabitFormModel{Category: constants.CategoryHealth, Goal: "1"}
		m.form = NewHabitForm(m.habitForm)
		m.state = stateAdd
		return m, m.form.Init()
	case key.Matches(keyMsg, m.keys.Sync):
		if m.sync == nil {
			return m, nil
		}
		m.status = "syncing..."
		sync := m.sync
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 4*requestTimeout)
			defer cancel()
			summary, err := sync(ctx)
			return actionDoneMsg{status: summary, err: err}
		}
	}

	h, ok := m.selected()
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	backend := m.backend

	switch {
	case key.Matches(keyMsg, m.keys.Toggle):
		return m, actionCmd("toggled "+h.Name, func(ctx context.Context) error {
			_, err := backend.Toggle(ctx, h.ID)
			return err
		})
	case key.Matches(keyMsg, m.keys.Plus):
		return m, actionCmd("progress +1 on "+h.Name, func(ctx context.Context) error {
			_, err := backend.RecordProgress(ctx, h.ID, 1)
			return err
		})
	case key.Matches(keyMsg, m.keys.Minus):
		return m, actionCmd("progress -1 on "+h.Name, func(ctx context.Context) error {
			_, err := backend.RecordProgress(ctx, h.ID, -1)
			return err
		})
	case key.Matches(keyMsg, m.keys.Delete):
		m.pendingDelete = &h
		m.state = stateConfirmDelete
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = stateList
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		in := m.habitForm.NewHabit()
		backend := m.backend
		m.state = stateList
		m.form = nil
		return m, actionCmd("added "+in.Name, func(ctx context.Context) error {
			_, err := backend.CreateHabit(ctx, in)
			return err
		})
	case huh.StateAborted:
		m.state = stateList
		m.form = nil
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		h := *m.pendingDelete
		backend := m.backend
		m.pendingDelete = nil
		m.state = stateList
		return m, actionCmd("deleted "+h.Name, func(ctx context.Context) error {
			return backend.DeleteHabit(ctx, h.ID)
		})
	case key.Matches(keyMsg, m.keys.Cancel):
		m.pendingDelete = nil
		m.state = stateList
	}
	return m, nil
}
