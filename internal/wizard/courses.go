package wizard

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/selection"
)

// courseItem is one row of the course picker.
type courseItem struct {
	course    selection.Course
	versions  int
	installed int
}

func (i courseItem) FilterValue() string { return i.course.Label() }

// courseDelegate renders one course per line.
type courseDelegate struct{}

func (d courseDelegate) Height() int                             { return 1 }
func (d courseDelegate) Spacing() int                            { return 0 }
func (d courseDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d courseDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(courseItem)
	if !ok {
		return
	}
	detail := fmt.Sprintf("%d version(s)", ci.versions)
	if ci.installed > 0 {
		detail += fmt.Sprintf(", %d installed", ci.installed)
	}
	row := renderItem(index == m.Index(), nil, ci.course.Label(), detail)
	fmt.Fprint(w, row[:len(row)-1])
}

// substringFilter matches the search term anywhere in the row, ignoring case.
func substringFilter(term string, targets []string) []list.Rank {
	var ranks []list.Rank
	for i, t := range targets {
		if selection.ContainsFold(t, term) {
			ranks = append(ranks, list.Rank{Index: i})
		}
	}
	return ranks
}

type coursesModel struct {
	sh    *shell
	list  list.Model
	count int
}

func newCoursesModel(sh *shell) coursesModel {
	l := list.New(nil, courseDelegate{}, sh.width, sh.height-chromeHeight)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Filter = substringFilter
	return coursesModel{sh: sh, list: l}
}

func (c *coursesModel) setSize(width, height int) {
	c.list.SetSize(width, max(3, height-3))
}

// activate fills the picker from the catalog and resets any filter.
func (c *coursesModel) activate(envs []catalog.Environment) {
	courses := selection.Courses(envs)
	items := make([]list.Item, len(courses))
	for i, course := range courses {
		item := courseItem{course: course}
		for _, e := range selection.Versions(envs, course.Number) {
			item.versions++
			if c.sh.installed.Has(e.Name) {
				item.installed++
			}
		}
		items[i] = item
	}
	c.list.ResetFilter()
	c.list.SetItems(items)
	c.list.Select(0)
	c.count = len(courses)
}

func (m Model) updateCourses(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && !m.courses.list.SettingFilter() {
		switch {
		case key.Matches(k, keys.Enter):
			if ci, ok := m.courses.list.SelectedItem().(courseItem); ok {
				m.versions = newVersionsModel(ci.course, m.sh)
				m.stage = stageVersions
			}
			return m, nil
		case key.Matches(k, keys.Back):
			if m.courses.list.FilterState() == list.FilterApplied {
				m.courses.list.ResetFilter()
				return m, nil
			}
			return m.goHome("")
		}
	}

	var cmd tea.Cmd
	m.courses.list, cmd = m.courses.list.Update(msg)
	return m, cmd
}

func (m Model) viewCourses() string {
	header := "  " + sectionStyle.Render("Select course:") + "\n" +
		dimStyle.Render(fmt.Sprintf("  Press / to search (%d courses)", m.courses.count)) + "\n" +
		dimStyle.Render("  e.g., type '01002' or 'math' to filter") + "\n\n"
	return header + m.courses.list.View() + "\n"
}
