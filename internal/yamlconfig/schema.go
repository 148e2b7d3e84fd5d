package yamlconfig

import (
	"fmt"

	"github.com/vk/assetgrid/internal/match"
	"gopkg.in/yaml.v3"
)

type document struct {
	Paths       *pathsDoc       `yaml:"paths"`
	Conventions *conventionsDoc `yaml:"conventions"`
	Files       []filesDoc      `yaml:"files"`
	Plugins     []pluginDoc     `yaml:"plugins"`
	Packages    *[]string       `yaml:"packages"`
	Optimize    *bool           `yaml:"optimize"`
}

type pathsDoc struct {
	Watched []string `yaml:"watched"`
	Public  string   `yaml:"public"`
}

type conventionsDoc struct {
	Assets  criteria `yaml:"assets"`
	Vendor  criteria `yaml:"vendor"`
	Ignored criteria `yaml:"ignored"`
}

type filesDoc struct {
	Type  string    `yaml:"type"`
	Joins []joinDoc `yaml:"joins"`
	Order orderDoc  `yaml:"order"`
}

type joinDoc struct {
	Output  string   `yaml:"output"`
	Sources criteria `yaml:"sources"`
}

type orderDoc struct {
	Before criteria `yaml:"before"`
	After  criteria `yaml:"after"`
}

type pluginDoc struct {
	Name      string   `yaml:"name"`
	Command   []string `yaml:"command"`
	Role      string   `yaml:"role"`
	Type      string   `yaml:"type"`
	Extension string   `yaml:"extension"`
	Pattern   string   `yaml:"pattern"`
	Ignore    criteria `yaml:"ignore"`
}

// criteria accepts a single criterion or a sequence of them. An explicit
// empty sequence decodes to a non-nil empty slice.
type criteria []match.Criterion

func (c *criteria) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		one, err := decodeCriterion(node)
		if err != nil {
			return err
		}
		*c = criteria{one}
		return nil
	}

	out := make(criteria, 0, len(node.Content))
	for _, item := range node.Content {
		one, err := decodeCriterion(item)
		if err != nil {
			return err
		}
		out = append(out, one)
	}
	*c = out
	return nil
}

func decodeCriterion(node *yaml.Node) (match.Criterion, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return match.String(node.Value), nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return match.Criterion{}, fmt.Errorf("line %d: criterion mapping must have exactly one key", node.Line)
		}
		kind, pattern := node.Content[0].Value, node.Content[1].Value
		switch kind {
		case "regex":
			c, err := match.CompileRegex(pattern)
			if err != nil {
				return match.Criterion{}, fmt.Errorf("line %d: %w", node.Line, err)
			}
			return c, nil
		case "glob":
			return match.Glob(pattern), nil
		case "exact":
			return match.Exact(pattern), nil
		}
		return match.Criterion{}, fmt.Errorf("line %d: unknown criterion kind %q", node.Line, kind)
	default:
		return match.Criterion{}, fmt.Errorf("line %d: criterion must be a string or a {regex|glob|exact: pattern} mapping", node.Line)
	}
}
