// Package tui is the interactive habit list. Every action goes through the offline cache,
// so the view keeps working without a server.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/models"
)

// Backend is the slice of the offline cache the TUI drives.
type Backend interface {
	Habits(ctx context.Context) ([]models.HabitWithProgress, error)
	Stats(ctx context.Context) (models.HabitStats, error)
	Toggle(ctx context.Context, id int64) (models.HabitWithProgress, error)
	RecordProgress(ctx context.Context, id int64, delta int) (models.HabitWithProgress, error)
	CreateHabit(ctx context.Context, in models.NewHabit) (models.HabitWithProgress, error)
	DeleteHabit(ctx context.Context, id int64) error
	State() constants.SyncState
}

// SyncFunc runs one sync pass and returns a short summary for the status line.
type SyncFunc func(ctx context.Context) (string, error)

type viewState int

const (
	stateList viewState = iota
	stateAdd
	stateConfirmDelete
)

// requestTimeout bounds every backend call made from a key press
const requestTimeout = constants.DefaultRequestTimeout + 5*time.Second

type Model struct {
	backend Backend
	sync    SyncFunc

	state     viewState
	list      list.Model
	help      help.Model
	keys      KeyMap
	form      *huh.Form
	habitForm *HabitFormModel

	stats   models.HabitStats
	status  string
	err     error
	loading bool
	width   int
	height  int

	// pendingDelete is the habit awaiting delete confirmation
	pendingDelete *models.HabitWithProgress
}

// NewModel builds the TUI model. sync may be nil, which disables the sync key.
func NewModel(backend Backend, sync SyncFunc) Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Today"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)

	return Model{
		backend: backend,
		sync:    sync,
		state:   stateList,
		list:    l,
		help:    help.New(),
		keys:    DefaultKeyMap(),
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

// Run starts the program on the alternate screen and blocks until the user quits.
func Run(backend Backend, sync SyncFunc) error {
	p := tea.NewProgram(NewModel(backend, sync), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) selected() (models.HabitWithProgress, bool) {
	it, ok := m.list.SelectedItem().(habitItem)
	if !ok {
		return models.HabitWithProgress{}, false
	}
	return it.habit, true
}
