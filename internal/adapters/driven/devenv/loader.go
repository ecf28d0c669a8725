package devenv

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure Loader implements the interface.
var _ driven.EnvironmentLoader = (*Loader)(nil)

// Loader reads compose files and bootstrap plans from disk.
type Loader struct{}

// NewLoader creates a new loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadDescriptor parses a compose file.
func (l *Loader) LoadDescriptor(path string) (*domain.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file composeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	desc := file.toDescriptor(path)
	logger.Debug("devenv: %s declares %d service(s) and %d network(s)", path, len(desc.Services), len(desc.Networks))
	return desc, nil
}

type planFile struct {
	Steps []struct {
		Name     string     `yaml:"name"`
		Dir      string     `yaml:"dir"`
		Run      stringList `yaml:"run"`
		Requires []string   `yaml:"requires"`
	} `yaml:"steps"`
}

// LoadPlan parses a bootstrap plan. A step without dir runs in the plan's
// own directory.
func (l *Loader) LoadPlan(path string) (*domain.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	plan := &domain.Plan{Steps: make([]domain.Step, 0, len(file.Steps))}
	for _, s := range file.Steps {
		dir := s.Dir
		if dir == "" {
			dir = "."
		}
		plan.Steps = append(plan.Steps, domain.Step{
			Name:     s.Name,
			Dir:      dir,
			Run:      s.Run,
			Requires: s.Requires,
		})
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}
