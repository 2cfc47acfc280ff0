package tui

import (
	"fmt"
	"strings"

	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("habitflow"))
	b.WriteString(" ")
	b.WriteString(m.stateBadge())
	b.WriteString("\n\n")

	switch m.state {
	case stateAdd:
		if m.form != nil {
			b.WriteString(m.form.View())
		}
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("esc to cancel"))
		return docStyle.Render(b.String())
	case stateConfirmDelete:
		if m.pendingDelete != nil {
			b.WriteString(dangerStyle.Render(fmt.Sprintf("Delete %q? (y/n)", m.pendingDelete.Name)))
		}
		return docStyle.Render(b.String())
	}

	switch {
	case m.loading && len(m.list.Items()) == 0:
		b.WriteString("Loading habits...")
	case len(m.list.Items()) == 0:
		b.WriteString("No habits yet. Press 'a' to add one.")
	default:
		b.WriteString(fmt.Sprintf("Today %s · total streak %d\n\n",
			m.stats.TodayProgress, m.stats.TotalStreak))
		b.WriteString(m.list.View())
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(dangerStyle.Render(apperrors.Format(m.err)))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))

	return docStyle.Render(b.String())
}

func (m Model) stateBadge() string {
	state := m.backend.State()
	switch state {
	case constants.StateOffline, constants.StateDirty:
		return offlineStyle.Render(string(state))
	default:
		return statusStyle.Render(string(state))
	}
}
