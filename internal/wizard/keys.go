package wizard

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keybindings for the shell.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Toggle    key.Binding
	ToggleAll key.Binding
	Mark      key.Binding
	Filter    key.Binding
	Quit      key.Binding
	Interrupt key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	ToggleAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "toggle all"),
	),
	// Mark toggles in the search screen, where space belongs to the query.
	Mark: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "toggle"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc"),
		key.WithHelp("q", "quit"),
	),
	Interrupt: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// upDown keeps the ↑/↓ keys usable while a text input has focus.
var upDown = struct{ Up, Down key.Binding }{
	Up:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
	Down: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
}

// helpFor lists the bindings shown in the footer of each stage.
func helpFor(s stage) []key.Binding {
	switch s {
	case stageHome:
		return []key.Binding{keys.Up, keys.Down, keys.Enter, keys.Quit}
	case stageCourses:
		return []key.Binding{keys.Up, keys.Down, keys.Filter, keys.Enter, keys.Back}
	case stageVersions:
		return []key.Binding{keys.Up, keys.Down, keys.Toggle, keys.ToggleAll, keys.Enter, keys.Back}
	case stageSearch:
		return []key.Binding{upDown.Up, upDown.Down, keys.Mark, keys.Enter, keys.Back}
	case stageRename, stageConfirm, stageLoading:
		return []key.Binding{keys.Enter, keys.Back}
	case stageInstalling:
		return []key.Binding{keys.Interrupt}
	case stageSummary:
		return []key.Binding{keys.Enter}
	}
	return nil
}
