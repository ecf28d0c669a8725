package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// EnvironmentLoader reads development environment definitions from disk.
type EnvironmentLoader interface {
	// LoadDescriptor parses a container descriptor (compose file).
	LoadDescriptor(path string) (*domain.Descriptor, error)

	// LoadPlan parses a bootstrap plan.
	LoadPlan(path string) (*domain.Plan, error)
}

// CommandExecutor runs external programs for bootstrap steps.
type CommandExecutor interface {
	// Execute runs argv in dir, streaming output to stdout and stderr.
	// It returns the process exit code. A non-nil error means the process
	// could not be started or was interrupted.
	Execute(ctx context.Context, dir string, argv []string, stdout, stderr io.Writer) (int, error)
}
