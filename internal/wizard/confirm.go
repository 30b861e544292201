package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtudk/dtu-env/internal/selection"
)

var confirmChoices = []string{"Yes, install", "Cancel"}

type confirmModel struct {
	cursor int
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, keys.Up):
		m.confirm.cursor = clamp(m.confirm.cursor-1, 0, len(confirmChoices)-1)
	case key.Matches(k, keys.Down):
		m.confirm.cursor = clamp(m.confirm.cursor+1, 0, len(confirmChoices)-1)
	case key.Matches(k, keys.Back):
		m.stage = stageRename
		cmd := m.rename.input.Focus()
		return m, cmd
	case k.String() == "n":
		return m.goHome("")
	case k.String() == "y":
		return m.proceed()
	case key.Matches(k, keys.Enter):
		if m.confirm.cursor == 0 {
			return m.proceed()
		}
		return m.goHome("")
	}
	return m, nil
}

func (m Model) proceed() (tea.Model, tea.Cmd) {
	picks := selection.Confirm(m.rename.picks, m.sh.installed)
	if len(picks) == 0 {
		return m.goHome("Nothing to install.")
	}
	return m.startBatch(picks)
}

func (m Model) viewConfirm() string {
	var b strings.Builder
	b.WriteString("  " + sectionStyle.Render("Will install:") + "\n")
	for _, p := range m.rename.picks {
		if p.Renamed() {
			b.WriteString("    " + focusStyle.Render(p.Name) + " " + dimStyle.Render("(was: "+p.Env.Name+")") + "\n")
		} else {
			b.WriteString("    " + focusStyle.Render(p.Name) + " " + dimStyle.Render("(unchanged)") + "\n")
		}
	}
	b.WriteString("\n  " + sectionStyle.Render("Proceed?") + "\n")
	for i, c := range confirmChoices {
		b.WriteString(renderItem(i == m.confirm.cursor, nil, c, ""))
	}
	return b.String()
}
