// Package catalog loads the course environment definitions a student can
// install. Definitions come from a Source: the live GitHub repository, the
// snapshot bundled into the binary, or live with a bundled fallback.
package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Extension is the suffix of every catalog file.
const Extension = ".yml"

// Environment is one installable course environment definition.
type Environment struct {
	Name            string   `json:"name"`
	CourseNumber    string   `json:"course_number"`
	CourseFullName  string   `json:"course_full_name"`
	CourseYear      string   `json:"course_year"`
	CourseSemester  string   `json:"course_semester"`
	Channels        []string `json:"channels"`
	Dependencies    []string `json:"dependencies"`
	PipDependencies []string `json:"pip_dependencies,omitempty"`
	// Filename is the catalog file the definition was read from.
	Filename string `json:"filename"`
}

// DisplayName renders "01002 - Mathematics 1b (Autumn 2024)".
func (e Environment) DisplayName() string {
	return fmt.Sprintf("%s - %s (%s %s)", e.CourseNumber, e.CourseFullName, e.CourseSemester, e.CourseYear)
}

// CourseLabel renders "01002 - Mathematics 1b".
func (e Environment) CourseLabel() string {
	return fmt.Sprintf("%s - %s", e.CourseNumber, e.CourseFullName)
}

// VersionLabel renders "2024 Autumn".
func (e Environment) VersionLabel() string {
	return strings.TrimSpace(e.CourseYear + " " + e.CourseSemester)
}

// IsSpring reports whether the semester mentions spring.
func (e Environment) IsSpring() bool {
	return containsFold(e.CourseSemester, "spring")
}

// IsAutumn reports whether the semester mentions autumn.
func (e Environment) IsAutumn() bool {
	return containsFold(e.CourseSemester, "autumn")
}

// normalize fills defaults for fields the source left out.
func (e Environment) normalize() Environment {
	if e.Name == "" {
		e.Name = strings.TrimSuffix(e.Filename, Extension)
	}
	if e.Channels == nil {
		e.Channels = []string{}
	}
	if e.Dependencies == nil {
		e.Dependencies = []string{}
	}
	return e
}

func containsFold(s, substr string) bool {
	fold := cases.Fold()
	return strings.Contains(fold.String(s), fold.String(substr))
}
