package selection

import (
	"fmt"

	"github.com/dtudk/dtu-env/internal/catalog"
)

// Pick is one definition confirmed for installation under Name.
type Pick struct {
	Env  catalog.Environment
	Name string
}

// NewPick installs env under its own name.
func NewPick(env catalog.Environment) Pick {
	return Pick{Env: env, Name: env.Name}
}

// Renamed reports whether the pick installs under a different name.
func (p Pick) Renamed() bool { return p.Name != p.Env.Name }

// Summary renders a confirm-screen line: "new (was: old)" or "name (unchanged)".
func (p Pick) Summary() string {
	if p.Renamed() {
		return fmt.Sprintf("%s (was: %s)", p.Name, p.Env.Name)
	}
	return fmt.Sprintf("%s (unchanged)", p.Name)
}

// Picks wraps envs as picks keeping their own names.
func Picks(envs []catalog.Environment) []Pick {
	out := make([]Pick, 0, len(envs))
	for _, e := range envs {
		out = append(out, NewPick(e))
	}
	return out
}

// Installable drops the definitions whose own name is already installed.
func Installable(envs []catalog.Environment, installed InstalledSet) []catalog.Environment {
	out := make([]catalog.Environment, 0, len(envs))
	for _, e := range envs {
		if !installed.Has(e.Name) {
			out = append(out, e)
		}
	}
	return out
}

// Confirm returns the picks to install, in order. A pick is dropped when
// the definition's original name is installed, whatever it was renamed to.
func Confirm(picks []Pick, installed InstalledSet) []Pick {
	out := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if installed.Has(p.Env.Name) {
			continue
		}
		out = append(out, p)
	}
	return out
}
