package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const mathDef = `name: 01002_E24
channels:
  - conda-forge
dependencies:
  - python=3.11
  - numpy
  - pip:
      - dtumathtools
metadata:
  course_number: "01002"
  course_full_name: Mathematics 1b
  course_year: 2024
  course_semester: Autumn
`

// TestParseDefinition verifies every field is read and an integer year
// is kept as its literal text.
func TestParseDefinition(t *testing.T) {
	env, err := ParseDefinition([]byte(mathDef), "01002_E24.yml")
	require.NoError(t, err)

	assert.Equal(t, "01002_E24", env.Name)
	assert.Equal(t, "01002", env.CourseNumber)
	assert.Equal(t, "Mathematics 1b", env.CourseFullName)
	assert.Equal(t, "2024", env.CourseYear)
	assert.Equal(t, "Autumn", env.CourseSemester)
	assert.Equal(t, []string{"conda-forge"}, env.Channels)
	assert.Equal(t, []string{"python=3.11", "numpy"}, env.Dependencies)
	assert.Equal(t, []string{"dtumathtools"}, env.PipDependencies)
	assert.Equal(t, "01002_E24.yml", env.Filename)
	assert.Equal(t, "01002 - Mathematics 1b (Autumn 2024)", env.DisplayName())
}

// TestParseDefinitionDefaults verifies missing fields fall back to the
// filename and empty values.
func TestParseDefinitionDefaults(t *testing.T) {
	env, err := ParseDefinition([]byte("channels: [conda-forge]\n"), "02002_F25.yml")
	require.NoError(t, err)

	assert.Equal(t, "02002_F25", env.Name)
	assert.Empty(t, env.CourseNumber)
	assert.Empty(t, env.CourseYear)
	assert.NotNil(t, env.Dependencies)
	assert.Empty(t, env.Dependencies)
	assert.Nil(t, env.PipDependencies)
}

// TestParseDefinitionNullMetadata verifies explicit nulls decode as "".
func TestParseDefinitionNullMetadata(t *testing.T) {
	env, err := ParseDefinition([]byte("name: x\nmetadata:\n  course_year: ~\n"), "x.yml")
	require.NoError(t, err)
	assert.Empty(t, env.CourseYear)
}

// TestParseDefinitionRejects verifies malformed documents are catalog errors.
func TestParseDefinitionRejects(t *testing.T) {
	cases := map[string]string{
		"not yaml":      "name: [unclosed",
		"sequence root": "- a\n- b\n",
		"empty":         "",
		"spaced name":   "name: my env\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(doc), "bad.yml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCatalogUnavailable))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "bad.yml", pe.Filename)
		})
	}
}

// TestRenameDefinition verifies the name key is replaced and the rest of
// the document survives.
func TestRenameDefinition(t *testing.T) {
	out, err := RenameDefinition([]byte(mathDef), "math")
	require.NoError(t, err)

	env, err := ParseDefinition(out, "01002_E24.yml")
	require.NoError(t, err)
	assert.Equal(t, "math", env.Name)
	assert.Equal(t, "2024", env.CourseYear)
	assert.Equal(t, []string{"dtumathtools"}, env.PipDependencies)
}

// TestRenameDefinitionAddsName verifies a document without a name key
// gets one.
func TestRenameDefinitionAddsName(t *testing.T) {
	out, err := RenameDefinition([]byte("channels:\n  - conda-forge\n"), "stats")
	require.NoError(t, err)

	var doc struct {
		Name string `yaml:"name"`
	}
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "stats", doc.Name)
}

// TestRenameDefinitionUnchanged verifies the same name returns the input bytes.
func TestRenameDefinitionUnchanged(t *testing.T) {
	in := []byte(mathDef)
	out, err := RenameDefinition(in, "01002_E24")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

// TestRenameDefinitionNumericName verifies a digits-only name stays a string.
func TestRenameDefinitionNumericName(t *testing.T) {
	out, err := RenameDefinition([]byte(mathDef), "2024")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))
	assert.Equal(t, "2024", doc["name"])
}

func TestRenameDefinitionRejectsSequence(t *testing.T) {
	_, err := RenameDefinition([]byte("- a\n"), "x")
	assert.Error(t, err)
}

func TestEnvironmentHelpers(t *testing.T) {
	spring := Environment{CourseYear: "2025", CourseSemester: "SPRING"}
	autumn := Environment{CourseYear: "2024", CourseSemester: "Autumn"}

	assert.True(t, spring.IsSpring())
	assert.False(t, spring.IsAutumn())
	assert.True(t, autumn.IsAutumn())
	assert.Equal(t, "2024 Autumn", autumn.VersionLabel())
}
