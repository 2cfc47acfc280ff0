package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	muted  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(accent).
			Padding(0, 1).
			Bold(true)

	statusStyle  = lipgloss.NewStyle().Foreground(muted).Padding(0, 1)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2A33A")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	dangerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")).Bold(true)

	docStyle = lipgloss.NewStyle().Margin(1, 2)
)
