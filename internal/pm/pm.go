// Package pm runs the conda-compatible package manager found on PATH.
// Use Detect() to obtain the preferred manager for the current machine.
package pm

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ErrNoPackageManager means neither mamba nor conda is on PATH.
var ErrNoPackageManager = errors.New("no conda package manager found (install mamba or conda)")

// Progress is one line of package manager output.
type Progress struct {
	Line   string
	Stderr bool
}

// PackageManager abstracts the mamba/conda operations dtu-env needs.
type PackageManager interface {
	// Name returns "mamba" or "conda".
	Name() string
	// ListEnvironments returns the names of existing environments.
	ListEnvironments(ctx context.Context) ([]string, error)
	// CreateEnvironment creates an environment from a definition file and
	// streams output lines to progress until the process exits. A non-zero
	// exit is returned as an error; see ExitCode.
	CreateEnvironment(ctx context.Context, file string, progress chan<- Progress) error
}

// candidates are tried in order of preference.
var candidates = []string{"mamba", "conda"}

var lookPath = exec.LookPath

// Detect returns mamba if available, otherwise conda.
func Detect() (PackageManager, error) {
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			return &CondaManager{Binary: name, Path: path}, nil
		}
	}
	return nil, ErrNoPackageManager
}

// ListInstalled returns the environments known to m. It never fails: a
// missing manager or a failing listing yields an empty result.
func ListInstalled(ctx context.Context, m PackageManager) []string {
	if m == nil {
		return []string{}
	}
	names, err := m.ListEnvironments(ctx)
	if err != nil {
		return []string{}
	}
	return names
}

// ExitCode extracts the process exit status from a CreateEnvironment error.
// It is 0 for nil and -1 when the process never produced a status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// envName returns the last path segment of an environment prefix,
// accepting both separators so Windows prefixes parse on any host.
func envName(prefix string) string {
	prefix = strings.TrimRight(prefix, `/\`)
	if i := strings.LastIndexAny(prefix, `/\`); i >= 0 {
		return prefix[i+1:]
	}
	return prefix
}
