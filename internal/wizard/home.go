package wizard

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	choiceInstall = iota
	choiceSearch
	choiceQuit
)

var homeChoices = []string{
	choiceInstall: "Install additional environments",
	choiceSearch:  "Search all environments",
	choiceQuit:    "Quit",
}

type homeModel struct {
	cursor int
	// ready is false until the first installed listing arrives.
	ready bool
	// note is the last error or status message.
	note string
}

func (m Model) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, keys.Up):
		m.home.cursor = clamp(m.home.cursor-1, 0, len(homeChoices)-1)
	case key.Matches(k, keys.Down):
		m.home.cursor = clamp(m.home.cursor+1, 0, len(homeChoices)-1)
	case key.Matches(k, keys.Quit):
		return m, tea.Quit
	case key.Matches(k, keys.Enter):
		switch m.home.cursor {
		case choiceInstall:
			return m.browse(browseCourses)
		case choiceSearch:
			return m.browse(browseSearch)
		default:
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) viewHome() string {
	var b strings.Builder

	switch {
	case !m.home.ready:
		b.WriteString(dimStyle.Render("  Checking installed environments...") + "\n")
	case len(m.sh.installedNames) == 0:
		b.WriteString(dimStyle.Render("  No conda environments found.") + "\n")
	default:
		b.WriteString("  " + sectionStyle.Render("Installed conda environments:") + "\n\n")
		for _, name := range m.sh.installedNames {
			b.WriteString("    " + name + "\n")
		}
	}
	if m.home.ready {
		if m.sh.manager == "" {
			b.WriteString("\n" + errorStyle.Render("  No conda package manager found. Install mamba or conda to create environments.") + "\n")
		} else {
			b.WriteString("\n" + dimStyle.Render("  Using "+m.sh.manager) + "\n")
		}
	}
	b.WriteString("\n")

	if m.home.note != "" {
		b.WriteString("  " + errorStyle.Render("✖ "+m.home.note) + "\n\n")
	}

	b.WriteString("  " + sectionStyle.Render("What would you like to do?") + "\n")
	for i, c := range homeChoices {
		b.WriteString(renderItem(i == m.home.cursor, nil, c, ""))
	}
	return b.String()
}
