package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure EnvironmentService implements the interface.
var _ driving.EnvironmentService = (*EnvironmentService)(nil)

// Cache wait backoff defaults.
const (
	cacheWaitBase    = 200 * time.Millisecond
	cacheWaitCap     = 2 * time.Second
	cacheWaitTimeout = 30 * time.Second
)

// DefaultPlan returns the bootstrap plan used when no plan file is given:
// download module dependencies, bring up local infrastructure by waiting for
// the cache, then verify the downloaded modules. self is the path of the
// running chatbot binary.
func DefaultPlan(self string) domain.Plan {
	return domain.Plan{
		Steps: []domain.Step{
			{
				Name:     "download dependencies",
				Dir:      ".",
				Run:      []string{"go", "mod", "download"},
				Requires: []string{"go.mod"},
			},
			{
				Name: "create local infra",
				Dir:  ".",
				Run:  []string{self, "env", "wait"},
			},
			{
				Name:     "verify dependencies",
				Dir:      ".",
				Run:      []string{"go", "mod", "verify"},
				Requires: []string{"go.sum"},
			},
		},
	}
}

// EnvironmentService validates the devcontainer descriptor and runs
// bootstrap plans.
type EnvironmentService struct {
	loader  driven.EnvironmentLoader
	runner  *Runner
	saver   driven.CheckpointSaver
	root    string
	self    string
	backoff func() retry.Backoff
}

// NewEnvironmentService creates an environment service. root is the
// directory the default plan runs in and self the chatbot binary path used
// by its infra step. saver is what WaitForCache pings and may be nil.
func NewEnvironmentService(
	loader driven.EnvironmentLoader,
	executor driven.CommandExecutor,
	saver driven.CheckpointSaver,
	root, self string,
) *EnvironmentService {
	return &EnvironmentService{
		loader: loader,
		runner: NewRunner(executor),
		saver:  saver,
		root:   root,
		self:   self,
		backoff: func() retry.Backoff {
			b := retry.NewExponential(cacheWaitBase)
			b = retry.WithCappedDuration(cacheWaitCap, b)
			return retry.WithMaxDuration(cacheWaitTimeout, b)
		},
	}
}

// Check loads and validates the container descriptor at path.
// The descriptor is returned even when validation fails, so callers can
// show what was parsed.
func (s *EnvironmentService) Check(path string) (*domain.Descriptor, error) {
	desc, err := s.loader.LoadDescriptor(path)
	if err != nil {
		return nil, fmt.Errorf("load descriptor: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return desc, err
	}
	logger.Info("Descriptor %s declares services %v", path, desc.ServiceNames())
	return desc, nil
}

// Bootstrap runs a plan step by step, stopping at the first failure.
// Step directories are relative to the plan file, or to the service root
// for the default plan.
func (s *EnvironmentService) Bootstrap(ctx context.Context, planPath string, out io.Writer) ([]domain.StepResult, error) {
	plan := DefaultPlan(s.self)
	root := s.root
	if planPath != "" {
		loaded, err := s.loader.LoadPlan(planPath)
		if err != nil {
			return nil, fmt.Errorf("load plan: %w", err)
		}
		plan = *loaded
		root = filepath.Dir(planPath)
	}
	return s.runner.Run(ctx, root, plan, out)
}

// WaitForCache pings the checkpoint backend with exponential backoff until
// it answers, ctx ends or the wait times out.
func (s *EnvironmentService) WaitForCache(ctx context.Context) error {
	if s.saver == nil {
		return domain.ErrCheckpointUnavailable
	}

	attempt := 0
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		if err := s.saver.Ping(ctx); err != nil {
			logger.Debug("cache not ready (attempt %d): %v", attempt, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCheckpointUnavailable, err)
	}
	logger.Info("Cache ready after %d attempt(s)", attempt)
	return nil
}

// Runner executes bootstrap plans sequentially.
type Runner struct {
	executor driven.CommandExecutor
	stat     func(string) (os.FileInfo, error)
	now      func() time.Time
}

// NewRunner creates a runner that starts commands with executor.
func NewRunner(executor driven.CommandExecutor) *Runner {
	return &Runner{
		executor: executor,
		stat:     os.Stat,
		now:      time.Now,
	}
}

// Run executes every step of plan in order with step directories resolved
// against root. Required files of every step are checked before any command
// starts. The first failing step stops the run with domain.ErrStepFailed;
// the results of the steps attempted so far are returned either way.
func (r *Runner) Run(ctx context.Context, root string, plan domain.Plan, out io.Writer) ([]domain.StepResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}

	if res, err := r.preflight(root, plan); err != nil {
		return []domain.StepResult{res}, err
	}

	results := make([]domain.StepResult, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		fmt.Fprintf(out, "==> [%d/%d] %s\n", i+1, len(plan.Steps), step.Name)
		logger.Debug("bootstrap: %s: %v in %s", step.Name, step.Run, stepDir(root, step))

		start := r.now()
		code, err := r.executor.Execute(ctx, stepDir(root, step), step.Run, out, out)
		res := domain.StepResult{
			Name:     step.Name,
			ExitCode: code,
			Duration: r.now().Sub(start),
			Err:      err,
		}
		results = append(results, res)

		if err != nil {
			return results, fmt.Errorf("%w: %s: %w", domain.ErrStepFailed, step.Name, err)
		}
		if code != 0 {
			return results, fmt.Errorf("%w: %s exited with status %d", domain.ErrStepFailed, step.Name, code)
		}
	}
	return results, nil
}

// preflight reports the first step whose required file is missing.
func (r *Runner) preflight(root string, plan domain.Plan) (domain.StepResult, error) {
	for _, step := range plan.Steps {
		dir := stepDir(root, step)
		for _, req := range step.Requires {
			path := filepath.Join(dir, req)
			if _, err := r.stat(path); err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					return failedStep(step, err), fmt.Errorf("%w: %s: %w", domain.ErrStepFailed, step.Name, err)
				}
				missing := fmt.Errorf("required file %s not found", path)
				return failedStep(step, missing), fmt.Errorf("%w: %s: %w", domain.ErrStepFailed, step.Name, missing)
			}
		}
	}
	return domain.StepResult{}, nil
}

func failedStep(step domain.Step, err error) domain.StepResult {
	return domain.StepResult{Name: step.Name, ExitCode: 1, Err: err}
}

func stepDir(root string, step domain.Step) string {
	if filepath.IsAbs(step.Dir) {
		return step.Dir
	}
	return filepath.Join(root, step.Dir)
}
