package devenv

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// stringList accepts either a YAML sequence of strings or a single
// whitespace-separated string, as compose does for command.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = strings.Fields(node.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list", node.Line)
	}
}

// nameList accepts a sequence of names or a mapping whose keys are the
// names, the two forms compose allows for networks and depends_on.
type nameList []string

func (l *nameList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	case yaml.MappingNode:
		names := make([]string, 0, len(node.Content)/2)
		for i := 0; i < len(node.Content); i += 2 {
			names = append(names, node.Content[i].Value)
		}
		*l = names
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a mapping", node.Line)
	}
}
