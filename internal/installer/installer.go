// Package installer materializes confirmed environment definitions with the
// detected package manager. Install never returns an error: every way an
// install can end is reported as an Outcome.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dtudk/dtu-env/internal/catalog"
	"github.com/dtudk/dtu-env/internal/logger"
	"github.com/dtudk/dtu-env/internal/pm"
)

// Kind classifies how one install ended.
type Kind int

const (
	Success Kind = iota
	// NoPackageManager means neither mamba nor conda is installed.
	NoPackageManager
	// FetchFailed means the raw definition could not be obtained or written.
	FetchFailed
	// InstallFailed means the package manager ran and did not succeed.
	InstallFailed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NoPackageManager:
		return "no package manager"
	case FetchFailed:
		return "fetch failed"
	case InstallFailed:
		return "install failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the result of installing one definition.
type Outcome struct {
	Env  catalog.Environment
	Name string
	Kind Kind
	// ExitCode is the package manager's exit status; -1 if it never exited.
	ExitCode int
	Err      error
	// Manager is the executable that ran, when one was found.
	Manager  string
	Duration time.Duration
}

// OK reports whether the environment was created.
func (o Outcome) OK() bool { return o.Kind == Success }

// Message is a one-line description for the user.
func (o Outcome) Message() string {
	switch o.Kind {
	case Success:
		return fmt.Sprintf("Created %s", o.Name)
	case NoPackageManager:
		return fmt.Sprintf("%s: no conda package manager found. Install mamba or conda first.", o.Name)
	case FetchFailed:
		return fmt.Sprintf("%s: could not get definition: %v", o.Name, o.Err)
	default:
		if errors.Is(o.Err, context.Canceled) {
			return fmt.Sprintf("%s: cancelled", o.Name)
		}
		return fmt.Sprintf("%s: %s exited with code %d", o.Name, o.Manager, o.ExitCode)
	}
}

// Installer creates environments one at a time.
type Installer struct {
	// Source supplies raw definition content by filename.
	Source catalog.Source
	// Detect locates the package manager on every call; nil uses pm.Detect.
	Detect func() (pm.PackageManager, error)
	Log    *logger.Logger
	// TempDir holds the materialized definition; "" uses os.TempDir.
	TempDir string
	OnStep  func(step, total int, label string) // called at each named stage
	OnLine  func(line string)                   // called for each raw output line from pm
}

// Install creates env under name. The temporary definition file is removed
// before Install returns on every path.
func (ins *Installer) Install(ctx context.Context, env catalog.Environment, name string) Outcome {
	return ins.install(ctx, ins.logger(), env, name)
}

func (ins *Installer) install(ctx context.Context, log *logger.Logger, env catalog.Environment, name string) (out Outcome) {
	start := time.Now()
	out = Outcome{Env: env, Name: name, ExitCode: -1}
	log = log.With("env", name)
	defer func() {
		out.Duration = time.Since(start)
		ev := log.Info()
		if !out.OK() {
			ev = log.Warn().Err(out.Err)
		}
		ev.Str("outcome", out.Kind.String()).
			Int("exit_code", out.ExitCode).
			Dur("duration", out.Duration).
			Msg("install finished")
	}()

	mgr, err := ins.detect()
	if err != nil {
		out.Kind = NoPackageManager
		out.Err = err
		return out
	}
	out.Manager = mgr.Name()

	ins.step(log, 1, 3, fmt.Sprintf("Fetching %s", env.Filename))
	raw, err := ins.Source.RawDefinition(ctx, env.Filename)
	if err != nil {
		out.Kind = FetchFailed
		out.Err = err
		return out
	}
	content, err := catalog.RenameDefinition(raw, name)
	if err != nil {
		out.Kind = FetchFailed
		out.Err = &catalog.ParseError{Filename: env.Filename, Err: err}
		return out
	}

	ins.step(log, 2, 3, "Writing definition")
	path, cleanup, err := ins.writeTemp(name, content)
	if err != nil {
		out.Kind = FetchFailed
		out.Err = err
		return out
	}
	defer cleanup()

	ins.step(log, 3, 3, fmt.Sprintf("Running %s env create -f %s --yes", mgr.Name(), path))
	err = ins.run(log, func(ch chan<- pm.Progress) error {
		return mgr.CreateEnvironment(ctx, path, ch)
	})
	out.ExitCode = pm.ExitCode(err)
	if err != nil {
		out.Kind = InstallFailed
		out.Err = err
		return out
	}
	out.Kind = Success
	return out
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (ins *Installer) detect() (pm.PackageManager, error) {
	if ins.Detect != nil {
		return ins.Detect()
	}
	return pm.Detect()
}

func (ins *Installer) logger() *logger.Logger {
	if ins.Log != nil {
		return ins.Log
	}
	return logger.NewDiscard()
}

func (ins *Installer) step(log *logger.Logger, n, total int, label string) {
	log.Printf("[%d/%d] %s", n, total, label)
	if ins.OnStep != nil {
		ins.OnStep(n, total, label)
	}
}

// writeTemp stores content in a file unique to this call. cleanup removes it.
func (ins *Installer) writeTemp(name string, content []byte) (string, func(), error) {
	f, err := os.CreateTemp(ins.TempDir, "dtu-env-"+tempSafe(name)+"-*"+catalog.Extension)
	if err != nil {
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(content); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}

// run drives one package manager call, teeing progress lines into the log
// and forwarding each line to OnLine if set.
// It waits for the drain goroutine to finish before returning so no output
// is lost even when the channel is buffered.
func (ins *Installer) run(log *logger.Logger, op func(chan<- pm.Progress) error) error {
	ch := make(chan pm.Progress, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range ch {
			if p.Line == "" {
				continue
			}
			_, _ = log.Write([]byte(p.Line))
			if ins.OnLine != nil {
				ins.OnLine(p.Line)
			}
		}
	}()
	err := op(ch)
	close(ch)
	<-done // wait for drain goroutine to flush all buffered lines
	return err
}

// tempSafe keeps a name usable inside a temp file pattern.
func tempSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '*', ':':
			return '_'
		}
		return r
	}, name)
}
