package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// EnvironmentService validates and prepares the development environment.
type EnvironmentService interface {
	// Check loads and validates the container descriptor at path.
	Check(path string) (*domain.Descriptor, error)

	// Bootstrap runs every step of the plan at planPath in order, stopping at
	// the first failure. An empty planPath runs the default plan.
	Bootstrap(ctx context.Context, planPath string, out io.Writer) ([]domain.StepResult, error)

	// WaitForCache blocks until the checkpoint backend answers or ctx ends.
	WaitForCache(ctx context.Context) error
}
