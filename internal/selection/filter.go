package selection

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/dtudk/dtu-env/internal/catalog"
)

// Filter returns the definitions matching query, in catalog order. The
// query is trimmed and matched as a case-insensitive substring against the
// name, course number, course title, semester and year. An empty query
// matches everything.
func Filter(envs []catalog.Environment, query string) []catalog.Environment {
	m := newMatcher(query)
	out := make([]catalog.Environment, 0, len(envs))
	for _, e := range envs {
		if m.match(e) {
			out = append(out, e)
		}
	}
	return out
}

type matcher struct {
	fold   cases.Caser
	needle string
}

func newMatcher(query string) matcher {
	fold := cases.Fold()
	return matcher{fold: fold, needle: fold.String(strings.TrimSpace(query))}
}

func (m matcher) match(e catalog.Environment) bool {
	if m.needle == "" {
		return true
	}
	for _, field := range []string{e.Name, e.CourseNumber, e.CourseFullName, e.CourseSemester, e.CourseYear} {
		if strings.Contains(m.fold.String(field), m.needle) {
			return true
		}
	}
	return false
}

// ContainsFold reports whether substr occurs in s ignoring case.
func ContainsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
