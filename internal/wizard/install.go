package wizard

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/dtudk/dtu-env/internal/installer"
	"github.com/dtudk/dtu-env/internal/selection"
)

// outputLines is how many trailing package manager lines are shown.
const outputLines = 8

// Batch progress travels from the worker goroutine to Update as messages.
type (
	itemStartMsg struct {
		index, total int
		pick         selection.Pick
	}
	stepMsg      struct{ label string }
	lineMsg      struct{ line string }
	itemDoneMsg  struct{ outcome installer.Outcome }
	batchDoneMsg struct{ summary installer.Summary }
)

type installModel struct {
	events   <-chan tea.Msg
	index    int
	total    int
	pick     selection.Pick
	step     string
	lines    []string
	done     []installer.Outcome
	summary  installer.Summary
	finished bool
}

// waitEvent delivers the next worker message to Update.
func waitEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// startBatch runs the installs on a single worker goroutine. The worker
// only sends messages; all model changes happen in Update.
func (m Model) startBatch(picks []selection.Pick) (tea.Model, tea.Cmd) {
	events := make(chan tea.Msg, 64)

	ins := *m.sh.opts.Installer
	ins.OnStep = func(step, total int, label string) {
		events <- stepMsg{label: fmt.Sprintf("[%d/%d] %s", step, total, label)}
	}
	ins.OnLine = func(line string) {
		events <- lineMsg{line: line}
	}
	hooks := installer.BatchHooks{
		OnStart: func(i, n int, p selection.Pick) {
			events <- itemStartMsg{index: i, total: n, pick: p}
		},
		OnDone: func(_, _ int, o installer.Outcome) {
			events <- itemDoneMsg{outcome: o}
		},
	}

	for _, p := range picks {
		m.sh.opts.Log.Info().Str("pick", p.Summary()).Msg("confirmed")
	}

	go func(ctx context.Context) {
		sum := ins.Batch(ctx, picks, hooks)
		events <- batchDoneMsg{summary: sum}
		close(events)
	}(m.sh.ctx)

	m.sh.events = events
	m.install = installModel{events: events, total: len(picks)}
	m.stage = stageInstalling
	return m, tea.Batch(m.spinner.Tick, waitEvent(events))
}

func (m Model) handleInstallEvent(msg tea.Msg) (tea.Model, tea.Cmd) {
	in := &m.install
	switch msg := msg.(type) {
	case itemStartMsg:
		in.index, in.total, in.pick = msg.index, msg.total, msg.pick
		in.step = ""
		in.lines = nil
	case stepMsg:
		in.step = msg.label
	case lineMsg:
		in.lines = append(in.lines, msg.line)
		if len(in.lines) > outputLines {
			in.lines = in.lines[len(in.lines)-outputLines:]
		}
	case itemDoneMsg:
		in.done = append(in.done, msg.outcome)
	case batchDoneMsg:
		in.finished = true
		in.summary = msg.summary
		m.sh.batches = append(m.sh.batches, msg.summary)
		if m.quitting {
			return m, tea.Quit
		}
		m.stage = stageSummary
		return m, nil
	}
	return m, waitEvent(in.events)
}

func (m Model) updateSummary(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter", "esc", "q", " ":
			return m.goHome("")
		}
	}
	return m, nil
}

// installTitle renders "Installing X (i/n)" plus "(from Y)" for a rename.
func installTitle(p selection.Pick, index, total int) string {
	title := focusStyle.Render(fmt.Sprintf("Installing %s (%d/%d)", p.Name, index+1, total))
	if p.Renamed() {
		title += " " + dimStyle.Render("(from "+p.Env.Name+")")
	}
	return title
}

func (m Model) viewOutcomes(b *strings.Builder) {
	for _, o := range m.install.done {
		if o.OK() {
			b.WriteString("  " + selectedStyle.Render("✓ "+o.Message()) + "\n")
			b.WriteString("    " + dimStyle.Render("Activate it with: conda activate "+o.Name) + "\n")
		} else {
			b.WriteString("  " + errorStyle.Render("✗ "+o.Message()) + "\n")
		}
	}
}

func (m Model) viewInstalling() string {
	in := m.install
	var b strings.Builder
	m.viewOutcomes(&b)
	if len(in.done) > 0 {
		b.WriteString("\n")
	}

	if in.pick.Name != "" && len(in.done) < in.total {
		rule := dimStyle.Render(strings.Repeat("─", clamp(m.sh.width-4, 10, 76)))
		b.WriteString("  " + rule + "\n")
		b.WriteString("  " + installTitle(in.pick, in.index, in.total) + "\n")
		b.WriteString("  " + m.spinner.View() + " " + in.step + "\n")
		width := clamp(m.sh.width-6, 10, 200)
		for _, l := range in.lines {
			b.WriteString("    " + dimStyle.Render(ansi.Truncate(ansi.Strip(l), width, "…")) + "\n")
		}
	}
	if m.quitting {
		b.WriteString("\n  " + errorStyle.Render("Interrupted. Waiting for the current install to stop...") + "\n")
	}
	return b.String()
}

func (m Model) viewSummary() string {
	var b strings.Builder
	m.viewOutcomes(&b)

	sum := m.install.summary
	line := selectedStyle.Render(fmt.Sprintf("%d installed", sum.Installed)) + ", "
	if sum.Failed > 0 {
		line += errorStyle.Render(fmt.Sprintf("%d failed", sum.Failed))
	} else {
		line += fmt.Sprintf("%d failed", sum.Failed)
	}
	if sum.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", sum.Skipped)
	}
	b.WriteString("\n  " + line + "\n")
	b.WriteString(dimStyle.Render("  Press enter to continue...") + "\n")
	return b.String()
}
