package driven

import (
	"context"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// CheckpointSaver persists graph state snapshots per conversation thread.
// Implementations must be safe for concurrent use.
type CheckpointSaver interface {
	// Put stores a checkpoint. cfg.CheckpointID, when set, is recorded as the
	// parent. Returns the config addressing the stored checkpoint.
	Put(ctx context.Context, cfg domain.ThreadConfig, cp domain.Checkpoint,
		md domain.CheckpointMetadata) (domain.ThreadConfig, error)

	// GetTuple returns the checkpoint addressed by cfg, or the latest one in
	// the thread when cfg.CheckpointID is empty.
	// Returns nil and no error if nothing matches.
	GetTuple(ctx context.Context, cfg domain.ThreadConfig) (*domain.CheckpointTuple, error)

	// List returns checkpoints newest first. A nil cfg lists every thread.
	List(ctx context.Context, cfg *domain.ThreadConfig, opts domain.ListOptions) ([]domain.CheckpointTuple, error)

	// Threads summarises every stored thread, most recently updated first.
	Threads(ctx context.Context) ([]domain.ThreadSummary, error)

	// DeleteThread removes every checkpoint of a thread.
	DeleteThread(ctx context.Context, threadID string) error

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
