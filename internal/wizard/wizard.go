// Package wizard implements the interactive Bubble Tea shell for dtu-env.
// The shell moves through a fixed set of stages: home, course picker,
// version picker or free-text search, rename, confirm, batch install and
// summary. Every stage can step back to its predecessor with esc; ctrl+c
// leaves the program from anywhere.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/installer"
	"github.com/dtudk/dtu-env/internal/logger"
	"github.com/dtudk/dtu-env/internal/pm"
	"github.com/dtudk/dtu-env/internal/selection"
)

// Options wires the shell to its collaborators.
type Options struct {
	Version   string
	Source    catalog.Source
	Installer *installer.Installer
	// Detect locates the package manager for the installed list; nil uses pm.Detect.
	Detect func() (pm.PackageManager, error)
	Log    *logger.Logger
	// SourceLabel describes the catalog source in the header.
	SourceLabel string
}

// Run shows the shell until the user quits and returns the summary of
// every batch that ran.
func Run(ctx context.Context, opts Options) ([]installer.Summary, error) {
	return run(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
}

// run drives the program. However it ends, a batch still in flight is
// cancelled and waited for, so its temporary file is gone on return.
func run(m Model, popts ...tea.ProgramOption) ([]installer.Summary, error) {
	_, err := tea.NewProgram(m, popts...).Run()
	m.sh.cancel()
	m.sh.waitBatch()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return m.sh.batches, fmt.Errorf("run shell: %w", err)
	}
	return m.sh.batches, nil
}

// ── styles ────────────────────────────────────────────────────────────────────

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	sectionStyle  = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// ── stages ────────────────────────────────────────────────────────────────────

type stage int

const (
	stageHome       stage = iota // installed list + main menu
	stageLoading                 // fetching the catalog
	stageCourses                 // drill-down: pick a course
	stageVersions                // drill-down: pick versions of one course
	stageSearch                  // filter mode over the whole catalog
	stageRename                  // optional rename per pick
	stageConfirm                 // "Will install:" + yes/cancel
	stageInstalling              // batch running
	stageSummary                 // batch finished
)

var stageNames = [...]string{"home", "loading", "courses", "versions", "search", "rename", "confirm", "installing", "summary"}

func (s stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type browseMode int

const (
	browseCourses browseMode = iota
	browseSearch
)

// shell is the state every stage shares. It is passed explicitly to the
// stage handlers instead of living in package globals.
type shell struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options

	width  int
	height int

	// installedNames keeps the package manager's listing order.
	installedNames []string
	installed      selection.InstalledSet
	manager        string

	// catalog is loaded once per run and reused by later browses.
	catalog []catalog.Environment

	batches []installer.Summary
	// events is the channel of the last batch worker; it closes when the
	// worker has returned.
	events <-chan tea.Msg
}

// waitBatch drains the last batch worker until it exits. Only call it once
// the program has stopped reading events.
func (sh *shell) waitBatch() {
	if sh.events == nil {
		return
	}
	for msg := range sh.events {
		if d, ok := msg.(batchDoneMsg); ok {
			sh.batches = append(sh.batches, d.summary)
		}
	}
	sh.events = nil
}

// Model is the root tea.Model.
type Model struct {
	sh      *shell
	stage   stage
	spinner spinner.Model
	help    help.Model

	mode    browseMode
	loadGen int

	home     homeModel
	courses  coursesModel
	versions versionsModel
	search   searchModel
	rename   renameModel
	confirm  confirmModel
	install  installModel

	// quitting is set by an interrupt during a batch; the program exits
	// once the in-flight install has returned.
	quitting bool
}

// New builds the shell model. ctx bounds every fetch and install it starts.
func New(ctx context.Context, opts Options) Model {
	if opts.Log == nil {
		opts.Log = logger.NewDiscard()
	}
	if opts.Detect == nil {
		opts.Detect = pm.Detect
	}
	ctx, cancel := context.WithCancel(ctx)

	sh := &shell{
		ctx:       ctx,
		cancel:    cancel,
		opts:      opts,
		width:     80,
		height:    24,
		installed: selection.NewInstalledSet(nil),
	}
	return Model{
		sh:      sh,
		stage:   stageHome,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		help:    help.New(),
		courses: newCoursesModel(sh),
	}
}

// ── messages ──────────────────────────────────────────────────────────────────

type installedMsg struct {
	names   []string
	manager string
}

type catalogMsg struct {
	gen  int
	envs []catalog.Environment
	err  error
}

// refreshInstalled lists installed environments in the background.
func refreshInstalled(sh *shell) tea.Cmd {
	ctx, detect := sh.ctx, sh.opts.Detect
	return func() tea.Msg {
		mgr, err := detect()
		if err != nil {
			return installedMsg{}
		}
		return installedMsg{names: pm.ListInstalled(ctx, mgr), manager: mgr.Name()}
	}
}

func loadCatalog(ctx context.Context, src catalog.Source, gen int) tea.Cmd {
	return func() tea.Msg {
		envs, err := src.ListEnvironments(ctx)
		return catalogMsg{gen: gen, envs: envs, err: err}
	}
}

// ── tea.Model interface ───────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return refreshInstalled(m.sh)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.sh.width, m.sh.height = msg.Width, msg.Height
		m.courses.setSize(msg.Width, msg.Height-chromeHeight)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.interrupt()
		}

	case spinner.TickMsg:
		if m.stage != stageLoading && m.stage != stageInstalling {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case installedMsg:
		m.sh.installedNames = msg.names
		m.sh.installed = selection.NewInstalledSet(msg.names)
		m.sh.manager = msg.manager
		m.home.ready = true
		return m, nil

	case catalogMsg:
		return m.handleCatalog(msg)

	case itemStartMsg, stepMsg, lineMsg, itemDoneMsg, batchDoneMsg:
		return m.handleInstallEvent(msg)
	}

	switch m.stage {
	case stageHome:
		return m.updateHome(msg)
	case stageLoading:
		return m.updateLoading(msg)
	case stageCourses:
		return m.updateCourses(msg)
	case stageVersions:
		return m.updateVersions(msg)
	case stageSearch:
		return m.updateSearch(msg)
	case stageRename:
		return m.updateRename(msg)
	case stageConfirm:
		return m.updateConfirm(msg)
	case stageSummary:
		return m.updateSummary(msg)
	}
	return m, nil
}

// interrupt cancels everything in flight. Outside a batch the program quits
// at once; inside one it waits for the running install to return so its
// temporary file is gone before exit.
func (m Model) interrupt() (tea.Model, tea.Cmd) {
	m.sh.cancel()
	m.sh.opts.Log.Info().Str("stage", m.stage.String()).Msg("interrupted")
	if m.stage == stageInstalling && !m.install.finished {
		m.quitting = true
		return m, nil
	}
	return m, tea.Quit
}

// browse opens the chosen browsing mode, loading the catalog first if needed.
func (m Model) browse(mode browseMode) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.home.note = ""
	if m.sh.catalog != nil {
		return m.enterBrowse()
	}
	m.loadGen++
	m.stage = stageLoading
	return m, tea.Batch(m.spinner.Tick, loadCatalog(m.sh.ctx, m.sh.opts.Source, m.loadGen))
}

func (m Model) handleCatalog(msg catalogMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.loadGen || m.stage != stageLoading {
		return m, nil
	}
	if msg.err != nil {
		m.sh.opts.Log.Warn().Err(msg.err).Msg("catalog load failed")
		m.stage = stageHome
		m.home.note = catalogErrorText(msg.err)
		return m, nil
	}
	if len(msg.envs) == 0 {
		m.stage = stageHome
		m.home.note = "No environments available."
		return m, nil
	}
	m.sh.catalog = msg.envs
	return m.enterBrowse()
}

func (m Model) enterBrowse() (tea.Model, tea.Cmd) {
	if m.mode == browseSearch {
		m.search = newSearchModel(m.sh.catalog)
		m.stage = stageSearch
		cmd := m.search.input.Focus()
		return m, cmd
	}
	m.courses.activate(m.sh.catalog)
	m.stage = stageCourses
	return m, nil
}

func (m Model) updateLoading(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		// The pending result is dropped by its stale generation.
		m.loadGen++
		m.stage = stageHome
	}
	return m, nil
}

func (m Model) goHome(note string) (tea.Model, tea.Cmd) {
	m.stage = stageHome
	m.home.note = note
	m.home.cursor = 0
	return m, refreshInstalled(m.sh)
}

func catalogErrorText(err error) string {
	var rl *catalog.RateLimitError
	switch {
	case errors.As(err, &rl):
		return rl.Error()
	case catalog.IsTimeout(err):
		return "Loading courses timed out. Check your connection and try again."
	case errors.Is(err, context.Canceled):
		return "Loading cancelled."
	default:
		return "Error loading courses: " + err.Error()
	}
}

// ── View ──────────────────────────────────────────────────────────────────────

// chromeHeight is the number of lines the header and footer take.
const chromeHeight = 7

func (m Model) View() string {
	var body string
	switch m.stage {
	case stageHome:
		body = m.viewHome()
	case stageLoading:
		body = "  " + m.spinner.View() + " Loading available courses...\n"
	case stageCourses:
		body = m.viewCourses()
	case stageVersions:
		body = m.viewVersions()
	case stageSearch:
		body = m.viewSearch()
	case stageRename:
		body = m.viewRename()
	case stageConfirm:
		body = m.viewConfirm()
	case stageInstalling:
		body = m.viewInstalling()
	case stageSummary:
		body = m.viewSummary()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString(body)
	b.WriteString("\n  " + m.help.ShortHelpView(helpFor(m.stage)) + "\n")
	return b.String()
}

func (m Model) viewHeader() string {
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("dtu-env"))
	if m.sh.opts.Version != "" {
		b.WriteString(" " + dimStyle.Render(m.sh.opts.Version))
	}
	b.WriteString("\n  " + dimStyle.Render("DTU Course Environment Manager"))
	if m.sh.opts.SourceLabel != "" {
		b.WriteString(dimStyle.Render(" · " + m.sh.opts.SourceLabel))
	}
	b.WriteString("\n\n")
	return b.String()
}

// renderItem draws one cursor row with an optional checkbox.
func renderItem(focused bool, check *bool, label, detail string) string {
	cursor := "  "
	if focused {
		cursor = focusStyle.Render(" ▶")
	}
	style := normalStyle
	if focused {
		style = focusStyle
	}
	box := ""
	if check != nil {
		box = "○ "
		if *check {
			box = selectedStyle.Render("◉") + " "
			if !focused {
				style = selectedStyle
			}
		}
	}
	line := fmt.Sprintf("%s %s%s", cursor, box, style.Render(label))
	if detail != "" {
		line += "  " + dimStyle.Render(detail)
	}
	return line + "\n"
}

func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
