package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// scalar accepts any YAML scalar as its literal text, so course_year: 2024
// and course_year: "2024" decode the same way.
type scalar string

func (s *scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	if n.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = scalar(n.Value)
	return nil
}

type rawMetadata struct {
	CourseNumber   scalar `yaml:"course_number"`
	CourseFullName scalar `yaml:"course_full_name"`
	CourseYear     scalar `yaml:"course_year"`
	CourseSemester scalar `yaml:"course_semester"`
}

type rawDefinition struct {
	Name         scalar      `yaml:"name"`
	Channels     []scalar    `yaml:"channels"`
	Dependencies []yaml.Node `yaml:"dependencies"`
	Metadata     rawMetadata `yaml:"metadata"`
}

// ParseDefinition decodes one environment YAML document read from filename.
// Missing metadata becomes "", missing lists become empty, and a missing
// name falls back to the filename without its extension.
func ParseDefinition(data []byte, filename string) (Environment, error) {
	root, err := documentRoot(data)
	if err != nil {
		return Environment{}, &ParseError{Filename: filename, Err: err}
	}

	var raw rawDefinition
	if err := root.Decode(&raw); err != nil {
		return Environment{}, &ParseError{Filename: filename, Err: err}
	}

	env := Environment{
		Name:           strings.TrimSpace(string(raw.Name)),
		CourseNumber:   string(raw.Metadata.CourseNumber),
		CourseFullName: string(raw.Metadata.CourseFullName),
		CourseYear:     string(raw.Metadata.CourseYear),
		CourseSemester: string(raw.Metadata.CourseSemester),
		Filename:       filename,
	}
	for _, c := range raw.Channels {
		env.Channels = append(env.Channels, string(c))
	}
	for _, dep := range raw.Dependencies {
		switch dep.Kind {
		case yaml.ScalarNode:
			env.Dependencies = append(env.Dependencies, dep.Value)
		case yaml.MappingNode:
			env.PipDependencies = append(env.PipDependencies, pipEntries(&dep)...)
		}
	}

	env = env.normalize()
	if strings.IndexFunc(env.Name, unicode.IsSpace) >= 0 {
		return Environment{}, &ParseError{Filename: filename, Err: fmt.Errorf("name %q contains whitespace", env.Name)}
	}
	return env, nil
}

// RenameDefinition rewrites the top-level name key of an environment YAML
// document, adding it when absent. The package manager takes the created
// environment's name from this key.
func RenameDefinition(data []byte, name string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("definition is not a mapping")
	}
	root := doc.Content[0]

	found := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "name" {
			if root.Content[i+1].Value == name {
				return data, nil
			}
			root.Content[i+1] = stringNode(name)
			found = true
			break
		}
	}
	if !found {
		root.Content = append([]*yaml.Node{stringNode("name"), stringNode(name)}, root.Content...)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func documentRoot(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("definition is not a mapping")
	}
	return doc.Content[0], nil
}

// pipEntries extracts the package requirements of a "- pip: [...]" dependency block.
func pipEntries(n *yaml.Node) []string {
	var out []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != "pip" || n.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range n.Content[i+1].Content {
			if item.Kind == yaml.ScalarNode {
				out = append(out, item.Value)
			}
		}
	}
	return out
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
