package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/selection"
)

type versionsModel struct {
	course selection.Course
	items  []catalog.Environment
	checks *selection.Checklist
	cursor int
	note   string
}

// newVersionsModel lists one course's versions, newest first, with the
// installed ones pre-marked.
func newVersionsModel(c selection.Course, sh *shell) versionsModel {
	items := selection.Versions(sh.catalog, c.Number)
	return versionsModel{
		course: c,
		items:  items,
		checks: selection.NewVersionChecklist(items, sh.installed),
	}
}

func (m Model) updateVersions(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	v := &m.versions
	switch {
	case key.Matches(k, keys.Up):
		v.cursor = clamp(v.cursor-1, 0, len(v.items)-1)
	case key.Matches(k, keys.Down):
		v.cursor = clamp(v.cursor+1, 0, len(v.items)-1)
	case key.Matches(k, keys.Toggle):
		if len(v.items) > 0 {
			v.checks.Toggle(v.items[v.cursor])
			v.note = ""
		}
	case key.Matches(k, keys.ToggleAll):
		v.checks.SetAll(v.items, v.checks.Count() < len(v.items))
		v.note = ""
	case key.Matches(k, keys.Back):
		m.stage = stageCourses
	case key.Matches(k, keys.Enter):
		envs := selection.Installable(v.checks.Selected(), m.sh.installed)
		if len(envs) == 0 {
			v.note = "Nothing to install."
			return m, nil
		}
		return m.enterRename(selection.Picks(envs), stageVersions)
	}
	return m, nil
}

func (m Model) viewVersions() string {
	v := m.versions
	var b strings.Builder
	b.WriteString("  " + sectionStyle.Render(v.course.Label()) + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d version(s) available", len(v.items))) + "\n\n")
	b.WriteString("  " + sectionStyle.Render("Select version(s) to install:") + "\n")
	for i, e := range v.items {
		checked := v.checks.IsMarked(e)
		b.WriteString(renderItem(i == v.cursor, &checked, selection.VersionLabel(e, m.sh.installed), e.Name))
	}
	if v.note != "" {
		b.WriteString("\n  " + dimStyle.Render(v.note) + "\n")
	}
	return b.String()
}
