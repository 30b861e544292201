package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtudk/dtu-env/internal/selection"
)

// renameModel walks the picks one at a time, asking for an optional new name.
type renameModel struct {
	picks []selection.Pick
	index int
	input textinput.Model
	err   string
	// from is the browse stage esc returns to from the first pick.
	from stage
}

func (m Model) enterRename(picks []selection.Pick, from stage) (tea.Model, tea.Cmd) {
	ti := textinput.New()
	ti.Prompt = "  New name: "
	ti.Width = 40
	m.rename = renameModel{picks: picks, input: ti, from: from}
	m.rename.load()
	m.stage = stageRename
	cmd := m.rename.input.Focus()
	return m, tea.Batch(cmd, textinput.Blink)
}

// load prepares the input for the current pick, showing a name chosen on
// an earlier pass.
func (r *renameModel) load() {
	p := r.picks[r.index]
	r.input.Placeholder = p.Env.Name
	r.input.SetValue("")
	if p.Renamed() {
		r.input.SetValue(p.Name)
	}
	r.input.CursorEnd()
	r.err = ""
}

func (m Model) updateRename(msg tea.Msg) (tea.Model, tea.Cmd) {
	r := &m.rename
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Enter):
			p := &r.picks[r.index]
			name, err := selection.ResolveName(p.Env.Name, r.input.Value())
			if err != nil {
				var ine *selection.InvalidNameError
				if errors.As(err, &ine) {
					r.err = ine.Reason
				} else {
					r.err = err.Error()
				}
				return m, nil
			}
			p.Name = name
			if r.index == len(r.picks)-1 {
				r.input.Blur()
				m.confirm = confirmModel{}
				m.stage = stageConfirm
				return m, nil
			}
			r.index++
			r.load()
			return m, nil

		case key.Matches(k, keys.Back):
			if r.index > 0 {
				r.index--
				r.load()
				return m, nil
			}
			m.stage = r.from
			if r.from == stageSearch {
				cmd := m.search.input.Focus()
				return m, cmd
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)
	return m, cmd
}

func (m Model) viewRename() string {
	r := m.rename
	p := r.picks[r.index]

	var b strings.Builder
	b.WriteString(dimStyle.Render("  Press Enter to keep current name, or type a new name (no spaces)") + "\n\n")
	b.WriteString("  Rename environment " + focusStyle.Render(p.Env.Name) +
		" (" + p.Env.CourseLabel() + ")?" +
		dimStyle.Render(fmt.Sprintf("  [%d/%d]", r.index+1, len(r.picks))) + "\n")
	b.WriteString(r.input.View() + "\n")
	if r.err != "" {
		b.WriteString("\n  " + errorStyle.Render("Error: "+r.err) + "\n")
		b.WriteString(dimStyle.Render("  Please try again") + "\n")
	}
	return b.String()
}
