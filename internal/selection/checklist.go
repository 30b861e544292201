package selection

import (
	"github.com/dtudk/dtu-env/internal/catalog"
)

// Checklist is a multi-select over a fixed list of definitions. Marks are
// keyed by filename, so they survive as the visible subset changes.
type Checklist struct {
	items  []catalog.Environment
	marked map[string]bool
}

// NewChecklist returns a checklist over items with nothing marked.
func NewChecklist(items []catalog.Environment) *Checklist {
	return &Checklist{items: items, marked: make(map[string]bool)}
}

// NewVersionChecklist pre-marks the versions that are already installed.
func NewVersionChecklist(items []catalog.Environment, installed InstalledSet) *Checklist {
	c := NewChecklist(items)
	for _, e := range items {
		if installed.Has(e.Name) {
			c.marked[e.Filename] = true
		}
	}
	return c
}

// Items returns every item in order.
func (c *Checklist) Items() []catalog.Environment { return c.items }

// Visible recomputes the items matching query from the full list.
func (c *Checklist) Visible(query string) []catalog.Environment {
	return Filter(c.items, query)
}

// Toggle flips the mark on e.
func (c *Checklist) Toggle(e catalog.Environment) {
	if c.marked[e.Filename] {
		delete(c.marked, e.Filename)
		return
	}
	c.marked[e.Filename] = true
}

// SetAll marks or clears every item in envs.
func (c *Checklist) SetAll(envs []catalog.Environment, on bool) {
	for _, e := range envs {
		if on {
			c.marked[e.Filename] = true
		} else {
			delete(c.marked, e.Filename)
		}
	}
}

// IsMarked reports whether e is marked.
func (c *Checklist) IsMarked(e catalog.Environment) bool {
	return c.marked[e.Filename]
}

// Count returns the number of marked items, visible or not.
func (c *Checklist) Count() int { return len(c.marked) }

// Selected returns the marked items in list order.
func (c *Checklist) Selected() []catalog.Environment {
	var out []catalog.Environment
	for _, e := range c.items {
		if c.marked[e.Filename] {
			out = append(out, e)
		}
	}
	return out
}
