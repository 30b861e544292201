package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/installer"
	"github.com/dtudk/dtu-env/internal/logger"
	"github.com/dtudk/dtu-env/internal/pm"
	"github.com/dtudk/dtu-env/internal/selection"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeSource struct {
	envs []catalog.Environment
	err  error
}

func (s *fakeSource) ListEnvironments(context.Context) ([]catalog.Environment, error) {
	return s.envs, s.err
}

func (s *fakeSource) RawDefinition(_ context.Context, filename string) ([]byte, error) {
	name := strings.TrimSuffix(filename, catalog.Extension)
	return []byte(fmt.Sprintf("name: %q\ndependencies:\n  - numpy\n", name)), nil
}

// fakePM fails the environments named in fail and blocks on block until
// the context ends.
type fakePM struct {
	fail    map[string]bool
	block   bool
	started chan struct{} // closed when the first create begins
	created []string
}

func (f *fakePM) Name() string { return "mamba" }

func (f *fakePM) ListEnvironments(context.Context) ([]string, error) { return nil, nil }

func (f *fakePM) CreateEnvironment(ctx context.Context, file string, ch chan<- pm.Progress) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	env, err := catalog.ParseDefinition(data, filepath.Base(file))
	if err != nil {
		return err
	}
	f.created = append(f.created, env.Name)
	ch <- pm.Progress{Line: "Solving environment: done"}
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.fail[env.Name] {
		return errors.New("exit status 1")
	}
	return nil
}

func def(name, number, full, year, sem string) catalog.Environment {
	return catalog.Environment{
		Name: name, CourseNumber: number, CourseFullName: full,
		CourseYear: year, CourseSemester: sem, Filename: name + catalog.Extension,
	}
}

func sampleCatalog() []catalog.Environment {
	return []catalog.Environment{
		def("01002_E24", "01002", "Mathematics 1b", "2024", "Autumn"),
		def("01002_F25", "01002", "Mathematics 1b", "2025", "Spring"),
		def("01003_E24", "01003", "Mathematics 1a", "2024", "Autumn"),
		def("02402_F25", "02402", "Introduction to Statistics", "2025", "Spring"),
	}
}

func newTestModel(t *testing.T, mgr *fakePM, src catalog.Source) Model {
	t.Helper()
	return newTestModelCtx(t, context.Background(), mgr, src)
}

func newTestModelCtx(t *testing.T, ctx context.Context, mgr *fakePM, src catalog.Source) Model {
	t.Helper()
	detect := func() (pm.PackageManager, error) { return mgr, nil }
	return New(ctx, Options{
		Version: "test",
		Source:  src,
		Installer: &installer.Installer{
			Source:  src,
			Detect:  detect,
			Log:     logger.NewDiscard(),
			TempDir: t.TempDir(),
		},
		Detect: detect,
		Log:    logger.NewDiscard(),
	})
}

// ── helpers ──────────────────────────────────────────────────────────────────

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(names ...string) []tea.Msg {
	out := make([]tea.Msg, len(names))
	for i, n := range names {
		out[i] = keyMsg(n)
	}
	return out
}

// loaded opens the given browse mode with the sample catalog in place.
func loaded(t *testing.T, m Model, installed []string, menuDowns int) Model {
	t.Helper()
	m, _ = send(t, m, installedMsg{names: installed, manager: "mamba"})
	for i := 0; i < menuDowns; i++ {
		m, _ = send(t, m, keyMsg("down"))
	}
	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageLoading {
		t.Fatalf("stage = %v, want loading", m.stage)
	}
	m, _ = send(t, m, catalogMsg{gen: m.loadGen, envs: sampleCatalog()})
	return m
}

// pump feeds worker messages into the model until the batch finishes and
// returns the command produced by the final message.
func pump(t *testing.T, m Model) (Model, tea.Cmd) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-m.install.events:
			if !ok {
				t.Fatal("event channel closed before batchDoneMsg")
			}
			var cmd tea.Cmd
			m, cmd = send(t, m, msg)
			if _, done := msg.(batchDoneMsg); done {
				return m, cmd
			}
		case <-timeout:
			t.Fatal("batch did not finish")
		}
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

// ── home ─────────────────────────────────────────────────────────────────────

// TestHomeListsInstalled verifies the installed environments and manager are shown.
func TestHomeListsInstalled(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m, _ = send(t, m, installedMsg{names: []string{"base", "01002_E24"}, manager: "mamba"})

	view := m.View()
	for _, want := range []string{"Installed conda environments:", "01002_E24", "Using mamba", "Install additional environments"} {
		if !strings.Contains(view, want) {
			t.Errorf("home view missing %q:\n%s", want, view)
		}
	}
}

// TestHomeEmpty verifies the empty and no-manager messages.
func TestHomeEmpty(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m, _ = send(t, m, installedMsg{})

	view := m.View()
	if !strings.Contains(view, "No conda environments found.") {
		t.Errorf("home view missing empty message:\n%s", view)
	}
	if !strings.Contains(view, "No conda package manager found") {
		t.Errorf("home view missing manager hint:\n%s", view)
	}
}

// TestRefreshInstalledUsesDetect verifies the background listing reports
// the detected manager.
func TestRefreshInstalledUsesDetect(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	msg, ok := m.Init()().(installedMsg)
	if !ok {
		t.Fatal("Init() did not produce installedMsg")
	}
	if msg.manager != "mamba" {
		t.Errorf("manager = %q, want mamba", msg.manager)
	}
}

// TestHomeQuit verifies q and the Quit entry end the program.
func TestHomeQuit(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	if _, cmd := send(t, m, keyMsg("q")); !isQuit(cmd) {
		t.Error("q did not quit")
	}
	if _, cmd := send(t, m, press("down", "down", "enter")...); !isQuit(cmd) {
		t.Error("Quit entry did not quit")
	}
}

// TestCtrlCQuitsOutsideBatch verifies an interrupt quits immediately.
func TestCtrlCQuitsOutsideBatch(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m = loaded(t, m, nil, 0)

	m, cmd := send(t, m, keyMsg("ctrl+c"))
	if !isQuit(cmd) {
		t.Error("ctrl+c did not quit")
	}
	if m.sh.ctx.Err() == nil {
		t.Error("ctrl+c did not cancel the shell context")
	}
}

// ── loading ──────────────────────────────────────────────────────────────────

// TestLoadCatalogCommand verifies browsing fetches from the Source.
func TestLoadCatalogCommand(t *testing.T) {
	src := &fakeSource{envs: sampleCatalog()}
	m := newTestModel(t, &fakePM{}, src)

	msg := loadCatalog(context.Background(), src, 7)().(catalogMsg)
	if msg.gen != 7 || len(msg.envs) != 4 || msg.err != nil {
		t.Errorf("loadCatalog() = %+v", msg)
	}

	m, cmd := send(t, m, keyMsg("enter"))
	if m.stage != stageLoading || cmd == nil {
		t.Fatalf("stage = %v cmd = %v, want loading with a command", m.stage, cmd)
	}
}

// TestCatalogRateLimitReturnsHome verifies the remedy is shown on home.
func TestCatalogRateLimitReturnsHome(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m, _ = send(t, m, installedMsg{}, keyMsg("enter"))
	m, _ = send(t, m, catalogMsg{gen: m.loadGen, err: &catalog.RateLimitError{}})

	if m.stage != stageHome {
		t.Fatalf("stage = %v, want home", m.stage)
	}
	if !strings.Contains(m.View(), "GITHUB_TOKEN") {
		t.Errorf("home view missing token guidance:\n%s", m.View())
	}
}

// TestLoadingEscDropsResult verifies a cancelled load is ignored when it lands.
func TestLoadingEscDropsResult(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m, _ = send(t, m, keyMsg("enter"))
	gen := m.loadGen
	m, _ = send(t, m, keyMsg("esc"), catalogMsg{gen: gen, envs: sampleCatalog()})

	if m.stage != stageHome {
		t.Errorf("stage = %v, want home", m.stage)
	}
	if m.sh.catalog != nil {
		t.Error("stale catalog result was stored")
	}
}

func TestEmptyCatalog(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m, _ = send(t, m, keyMsg("enter"))
	m, _ = send(t, m, catalogMsg{gen: m.loadGen})
	if m.stage != stageHome || m.home.note != "No environments available." {
		t.Errorf("stage = %v note = %q", m.stage, m.home.note)
	}
}

// ── drill-down ───────────────────────────────────────────────────────────────

// TestCoursesListed verifies the picker shows one row per course.
func TestCoursesListed(t *testing.T) {
	m := loaded(t, newTestModel(t, &fakePM{}, &fakeSource{}), nil, 0)

	if m.stage != stageCourses {
		t.Fatalf("stage = %v, want courses", m.stage)
	}
	if got := len(m.courses.list.Items()); got != 3 {
		t.Errorf("course rows = %d, want 3", got)
	}
	if !strings.Contains(m.View(), "(3 courses)") {
		t.Errorf("course hint missing:\n%s", m.View())
	}
}

// TestVersionsPremarkInstalled verifies installed versions start checked and
// are tagged, and that confirming only them installs nothing.
func TestVersionsPremarkInstalled(t *testing.T) {
	m := loaded(t, newTestModel(t, &fakePM{}, &fakeSource{}), []string{"01002_E24"}, 0)
	m, _ = send(t, m, keyMsg("enter"))

	if m.stage != stageVersions {
		t.Fatalf("stage = %v, want versions", m.stage)
	}
	if m.versions.items[0].Name != "01002_F25" {
		t.Errorf("first version = %s, want newest 01002_F25", m.versions.items[0].Name)
	}
	if !m.versions.checks.IsMarked(m.versions.items[1]) {
		t.Error("installed version not pre-marked")
	}
	if !strings.Contains(m.View(), "2024 Autumn (installed)") {
		t.Errorf("installed tag missing:\n%s", m.View())
	}

	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageVersions || m.versions.note != "Nothing to install." {
		t.Errorf("stage = %v note = %q, want nothing to install", m.stage, m.versions.note)
	}
}

// TestDrillDownToConfirm walks course → versions → rename → confirm.
func TestDrillDownToConfirm(t *testing.T) {
	m := loaded(t, newTestModel(t, &fakePM{}, &fakeSource{}), []string{"01002_E24"}, 0)
	m, _ = send(t, m, press("enter", "space", "enter")...)

	if m.stage != stageRename {
		t.Fatalf("stage = %v, want rename", m.stage)
	}
	if len(m.rename.picks) != 1 || m.rename.picks[0].Env.Name != "01002_F25" {
		t.Fatalf("picks = %+v, want only 01002_F25", m.rename.picks)
	}

	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageConfirm {
		t.Fatalf("stage = %v, want confirm", m.stage)
	}
	view := m.View()
	if !strings.Contains(view, "Will install:") || !strings.Contains(view, "01002_F25 (unchanged)") {
		t.Errorf("confirm view:\n%s", view)
	}
}

// TestBackTransitions verifies esc steps back one stage at a time.
func TestBackTransitions(t *testing.T) {
	m := loaded(t, newTestModel(t, &fakePM{}, &fakeSource{}), nil, 0)
	m, _ = send(t, m, press("enter", "space", "enter")...)

	want := []stage{stageConfirm, stageRename, stageVersions, stageCourses, stageHome}
	m, _ = send(t, m, keyMsg("enter"))
	for i, w := range want {
		if m.stage != w {
			t.Fatalf("step %d: stage = %v, want %v", i, m.stage, w)
		}
		m, _ = send(t, m, keyMsg("esc"))
	}
}

// ── rename ───────────────────────────────────────────────────────────────────

// TestRenameValidation verifies bad names re-prompt and a good one sticks.
func TestRenameValidation(t *testing.T) {
	m := loaded(t, newTestModel(t, &fakePM{}, &fakeSource{}), nil, 0)
	m, _ = send(t, m, press("enter", "space", "enter")...)

	m, _ = send(t, m, keyMsg("my env"), keyMsg("enter"))
	if m.stage != stageRename || m.rename.err == "" {
		t.Fatalf("stage = %v err = %q, want rejection", m.stage, m.rename.err)
	}

	m.rename.input.SetValue(" ")
	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageRename {
		t.Fatalf("whitespace-only name accepted")
	}

	m.rename.input.SetValue("math1b")
	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageConfirm {
		t.Fatalf("stage = %v, want confirm", m.stage)
	}
	if !strings.Contains(m.View(), "math1b (was: 01002_F25)") {
		t.Errorf("confirm view:\n%s", m.View())
	}
}

// ── search ───────────────────────────────────────────────────────────────────

// TestSearchRecomputesAndKeepsMarks verifies every keystroke filters the
// full catalog and marks survive being hidden.
func TestSearchRecomputesAndKeepsMarks(t *testing.T) {
	m := loaded(t, newTestModel(t, &fakePM{}, &fakeSource{}), nil, 1)
	if m.stage != stageSearch {
		t.Fatalf("stage = %v, want search", m.stage)
	}
	if got := len(m.search.visible()); got != 4 {
		t.Fatalf("visible = %d, want full catalog", got)
	}

	m, _ = send(t, m, keyMsg("01002"))
	if got := len(m.search.visible()); got != 2 {
		t.Fatalf("visible after 01002 = %d, want 2", got)
	}
	m, _ = send(t, m, keyMsg("tab"))

	m.search.input.SetValue("stat")
	m, _ = send(t, m, keyMsg("tab"))
	if got := m.search.checks.Count(); got != 2 {
		t.Errorf("marked = %d, want 2", got)
	}

	m, _ = send(t, m, keyMsg("esc"))
	if m.search.input.Value() != "" || len(m.search.visible()) != 4 {
		t.Errorf("esc did not clear the query")
	}

	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageRename || len(m.rename.picks) != 2 {
		t.Fatalf("stage = %v picks = %d, want rename with 2", m.stage, len(m.rename.picks))
	}
}

// ── install ──────────────────────────────────────────────────────────────────

// TestBatchSummary verifies three items run in order, the middle failure
// does not stop the last, and the summary counts both.
func TestBatchSummary(t *testing.T) {
	mgr := &fakePM{fail: map[string]bool{"01003_E24": true}}
	m := loaded(t, newTestModel(t, mgr, &fakeSource{}), nil, 1)

	// 01002_F25, 01002_E24, 01003_E24 in search order
	m, _ = send(t, m, press("tab", "down", "tab", "down", "tab", "enter")...)
	m, _ = send(t, m, press("enter", "enter", "enter")...)
	if m.stage != stageConfirm {
		t.Fatalf("stage = %v, want confirm", m.stage)
	}

	m, _ = send(t, m, keyMsg("enter"))
	if m.stage != stageInstalling {
		t.Fatalf("stage = %v, want installing", m.stage)
	}
	m, _ = pump(t, m)

	if m.stage != stageSummary {
		t.Fatalf("stage = %v, want summary", m.stage)
	}
	if got := strings.Join(mgr.created, ","); got != "01002_F25,01002_E24,01003_E24" {
		t.Errorf("install order = %s", got)
	}
	view := m.View()
	for _, want := range []string{"2 installed, 1 failed", "conda activate 01002_F25", "01003_E24: mamba exited"} {
		if !strings.Contains(view, want) {
			t.Errorf("summary missing %q:\n%s", want, view)
		}
	}

	m, cmd := send(t, m, keyMsg("enter"))
	if m.stage != stageHome || cmd == nil {
		t.Errorf("stage = %v, want home with a refresh", m.stage)
	}
}

// TestInstallingShowsProgress verifies the title and output lines render.
func TestInstallingShowsProgress(t *testing.T) {
	m := newTestModel(t, &fakePM{}, &fakeSource{})
	m.stage = stageInstalling
	m.install.events = make(chan tea.Msg)
	p := selection.NewPick(def("01002_E24", "01002", "Math", "2024", "Autumn"))
	p.Name = "math"

	m, _ = send(t, m,
		itemStartMsg{index: 0, total: 2, pick: p},
		stepMsg{label: "[3/3] Running mamba env create"},
		lineMsg{line: "\x1b[32mSolving\x1b[0m environment"},
	)
	view := m.View()
	for _, want := range []string{"Installing math (1/2)", "(from 01002_E24)", "Running mamba env create", "Solving environment"} {
		if !strings.Contains(view, want) {
			t.Errorf("installing view missing %q:\n%s", want, view)
		}
	}
}

// TestInterruptWaitsForInstall verifies ctrl+c during a batch cancels the
// running install, starts nothing new and quits once the worker is done.
func TestInterruptWaitsForInstall(t *testing.T) {
	mgr := &fakePM{block: true}
	m := loaded(t, newTestModel(t, mgr, &fakeSource{}), nil, 1)
	m, _ = send(t, m, press("tab", "down", "tab", "enter", "enter", "enter", "enter")...)
	if m.stage != stageInstalling {
		t.Fatalf("stage = %v, want installing", m.stage)
	}

	// wait until the first install is running
	for msg := range m.install.events {
		m, _ = send(t, m, msg)
		if _, ok := msg.(lineMsg); ok {
			break
		}
	}

	m, cmd := send(t, m, keyMsg("ctrl+c"))
	if cmd != nil || !m.quitting {
		t.Fatal("ctrl+c during install should wait for the worker")
	}

	m, cmd = pump(t, m)
	if !isQuit(cmd) {
		t.Error("program did not quit after the batch stopped")
	}
	if len(mgr.created) != 1 {
		t.Errorf("installs started = %d, want 1", len(mgr.created))
	}
	if m.install.summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", m.install.summary.Skipped)
	}
}

// TestRunWaitsForBatchWhenKilled verifies that when the program is killed by
// its context mid-install, run only returns after the install has stopped
// and removed its temporary file.
func TestRunWaitsForBatchWhenKilled(t *testing.T) {
	started := make(chan struct{})
	mgr := &fakePM{block: true, started: started}
	sigCtx, kill := context.WithCancel(context.Background())
	defer kill()

	m := loaded(t, newTestModelCtx(t, sigCtx, mgr, &fakeSource{}), nil, 0)
	m, _ = send(t, m, press("enter", "space", "enter", "enter")...)
	if m.stage != stageConfirm {
		t.Fatalf("stage = %v, want confirm", m.stage)
	}

	in, feed := io.Pipe()
	defer feed.Close()
	done := make(chan error, 1)
	go func() {
		_, err := run(m,
			tea.WithContext(sigCtx),
			tea.WithInput(in),
			tea.WithOutput(io.Discard),
			tea.WithoutSignalHandler(),
		)
		done <- err
	}()
	go feed.Write([]byte("\r")) // confirm "Yes, install"

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("install did not start")
	}
	kill()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return")
	}

	entries, err := os.ReadDir(m.sh.opts.Installer.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("temporary files left after run returned: %v", entries)
	}
	if len(mgr.created) != 1 {
		t.Errorf("installs started = %d, want 1", len(mgr.created))
	}
}

func TestCatalogErrorText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&catalog.RateLimitError{}, "60 requests/hour"},
		{context.Canceled, "cancelled"},
		{&catalog.UnavailableError{URL: "x", StatusCode: 500}, "Error loading courses"},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), "timed out"},
	}
	for _, c := range cases {
		if got := catalogErrorText(c.err); !strings.Contains(got, c.want) {
			t.Errorf("catalogErrorText(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
