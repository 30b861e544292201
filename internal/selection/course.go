// Package selection turns a flat catalog into the drill-down and filter
// browsing flows and produces the confirmed install set. It holds no UI
// state beyond what a screen hands it.
package selection

import (
	"sort"
	"strings"

	"github.com/dtudk/dtu-env/internal/catalog"
)

// Course groups every definition sharing a course number and title.
type Course struct {
	Number   string
	FullName string
}

// Label renders "01002 - Mathematics 1b".
func (c Course) Label() string {
	return c.Number + " - " + c.FullName
}

// Courses returns the distinct courses in envs sorted by (number, full name).
func Courses(envs []catalog.Environment) []Course {
	seen := make(map[Course]bool, len(envs))
	var out []Course
	for _, e := range envs {
		c := Course{Number: e.CourseNumber, FullName: e.CourseFullName}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}

// Versions returns the definitions of one course number, most recent first.
func Versions(envs []catalog.Environment, number string) []catalog.Environment {
	var out []catalog.Environment
	for _, e := range envs {
		if e.CourseNumber == number {
			out = append(out, e)
		}
	}
	SortRecentFirst(out)
	return out
}

// SortRecentFirst orders envs by year descending, then by semester with
// autumn after spring in the same year. Unrecognised semesters sort last
// within their year.
func SortRecentFirst(envs []catalog.Environment) {
	sort.SliceStable(envs, func(i, j int) bool {
		a, b := envs[i], envs[j]
		if a.CourseYear != b.CourseYear {
			return a.CourseYear > b.CourseYear
		}
		ra, rb := semesterRank(a), semesterRank(b)
		if ra != rb {
			return ra > rb
		}
		if a.CourseSemester != b.CourseSemester {
			return a.CourseSemester > b.CourseSemester
		}
		return a.Name < b.Name
	})
}

func semesterRank(e catalog.Environment) int {
	switch {
	case e.IsAutumn():
		return 2
	case e.IsSpring():
		return 1
	default:
		return 0
	}
}

// InstalledSet indexes installed environment names for exact lookups.
type InstalledSet map[string]struct{}

// NewInstalledSet builds a set from the package manager's listing.
func NewInstalledSet(names []string) InstalledSet {
	s := make(InstalledSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is installed. Matching is exact.
func (s InstalledSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// VersionLabel renders a version row, tagging installed definitions.
func VersionLabel(e catalog.Environment, installed InstalledSet) string {
	label := e.VersionLabel()
	if installed.Has(e.Name) {
		label += " (installed)"
	}
	return strings.TrimSpace(label)
}
