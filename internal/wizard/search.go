package wizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/selection"
)

// searchPage caps how many matches are drawn at once.
const searchPage = 12

type searchModel struct {
	input  textinput.Model
	checks *selection.Checklist
	cursor int
	note   string
}

func newSearchModel(envs []catalog.Environment) searchModel {
	sorted := make([]catalog.Environment, len(envs))
	copy(sorted, envs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CourseNumber < sorted[j].CourseNumber
	})
	// keep each course's versions newest first
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].CourseNumber == sorted[i].CourseNumber {
			j++
		}
		selection.SortRecentFirst(sorted[i:j])
		i = j
	}

	ti := textinput.New()
	ti.Placeholder = "course number, name, year or semester"
	ti.Prompt = "  Search: "
	ti.Width = 40

	return searchModel{input: ti, checks: selection.NewChecklist(sorted)}
}

// visible recomputes the matches from the full catalog on every call.
func (s searchModel) visible() []catalog.Environment {
	return s.checks.Visible(s.input.Value())
}

func (m Model) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	s := &m.search
	if k, ok := msg.(tea.KeyMsg); ok {
		visible := s.visible()
		switch {
		case key.Matches(k, upDown.Up):
			s.cursor = clamp(s.cursor-1, 0, len(visible)-1)
			return m, nil
		case key.Matches(k, upDown.Down):
			s.cursor = clamp(s.cursor+1, 0, len(visible)-1)
			return m, nil
		case key.Matches(k, keys.Mark):
			if len(visible) > 0 {
				s.checks.Toggle(visible[s.cursor])
				s.note = ""
			}
			return m, nil
		case key.Matches(k, keys.Back):
			if s.input.Value() != "" {
				s.input.SetValue("")
				s.cursor = 0
				return m, nil
			}
			return m.goHome("")
		case key.Matches(k, keys.Enter):
			envs := selection.Installable(s.checks.Selected(), m.sh.installed)
			if len(envs) == 0 {
				s.note = "Nothing to install."
				return m, nil
			}
			s.input.Blur()
			return m.enterRename(selection.Picks(envs), stageSearch)
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	s.cursor = clamp(s.cursor, 0, len(s.visible())-1)
	return m, cmd
}

func (m Model) viewSearch() string {
	s := m.search
	visible := s.visible()

	var b strings.Builder
	b.WriteString(s.input.View() + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d of %d match · %d selected",
		len(visible), len(s.checks.Items()), s.checks.Count())) + "\n\n")

	if len(visible) == 0 {
		b.WriteString(dimStyle.Render("  No matching environments.") + "\n")
	}
	start := 0
	if s.cursor >= searchPage {
		start = s.cursor - searchPage + 1
	}
	end := min(len(visible), start+searchPage)
	for i := start; i < end; i++ {
		e := visible[i]
		checked := s.checks.IsMarked(e)
		detail := e.DisplayName()
		if m.sh.installed.Has(e.Name) {
			detail += " (installed)"
		}
		b.WriteString(renderItem(i == s.cursor, &checked, e.Name, detail))
	}
	if s.note != "" {
		b.WriteString("\n  " + dimStyle.Render(s.note) + "\n")
	}
	return b.String()
}
