// Package process runs bootstrap commands as child processes.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure Executor implements the interface.
var _ driven.CommandExecutor = (*Executor)(nil)

// DefaultWaitDelay bounds how long output is drained after cancellation or
// exit, when a grandchild such as the binary started by go run still holds
// the pipes.
const DefaultWaitDelay = 3 * time.Second

// Executor runs commands with os/exec.
type Executor struct {
	// Env, when non-nil, replaces the inherited environment.
	Env []string

	// WaitDelay is passed to exec.Cmd.WaitDelay.
	WaitDelay time.Duration
}

// NewExecutor creates an executor that inherits the process environment.
func NewExecutor() *Executor {
	return &Executor{WaitDelay: DefaultWaitDelay}
}

// lockedWriter serialises writes so stdout and stderr may share a writer.
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Execute runs argv in dir and streams both outputs until the process
// exits. A non-zero exit is reported through the exit code, not the error.
func (e *Executor) Execute(ctx context.Context, dir string, argv []string, stdout, stderr io.Writer) (int, error) {
	if len(argv) == 0 {
		return -1, errors.New("empty command")
	}
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if e.Env != nil {
		cmd.Env = e.Env
	}

	var mu sync.Mutex
	cmd.Stdout = lockedWriter{mu: &mu, w: stdout}
	cmd.Stderr = lockedWriter{mu: &mu, w: stderr}
	cmd.WaitDelay = e.WaitDelay

	logger.Debug("process: running %v in %s", argv, dir)
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start %s: %w", argv[0], err)
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		logger.Debug("process: %s exited with status %d", argv[0], exitErr.ExitCode())
		return exitErr.ExitCode(), nil
	}
	if errors.Is(waitErr, exec.ErrWaitDelay) {
		logger.Debug("process: %s left output open after exit", argv[0])
		return 0, nil
	}
	if waitErr != nil {
		return -1, fmt.Errorf("wait %s: %w", argv[0], waitErr)
	}
	return 0, nil
}
