package driving

import (
	"context"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// ReplyFunc receives each assistant message produced by a chat turn.
// Returning an error aborts the turn.
type ReplyFunc func(reply domain.Message) error

// ChatService runs conversation turns and exposes thread history.
type ChatService interface {
	// NewThread returns a fresh thread ID.
	NewThread() string

	// Send runs one user turn on a thread and streams assistant replies to fn.
	Send(ctx context.Context, threadID, input string, fn ReplyFunc) error

	// History returns the messages of the latest checkpoint of a thread.
	History(ctx context.Context, threadID string) ([]domain.Message, error)

	// Checkpoints lists a thread's checkpoints, newest first.
	Checkpoints(ctx context.Context, threadID string, opts domain.ListOptions) ([]domain.CheckpointTuple, error)

	// Threads summarises every stored thread.
	Threads(ctx context.Context) ([]domain.ThreadSummary, error)

	// DeleteThread removes a thread and all its checkpoints.
	DeleteThread(ctx context.Context, threadID string) error

	// ModelName returns the configured model, or empty when no LLM is set up.
	ModelName() string
}
