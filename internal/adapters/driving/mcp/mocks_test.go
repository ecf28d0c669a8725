package mcp

import (
	"context"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	newThreadID string
	replies     []string
	threads     []domain.ThreadSummary
	history     map[string][]domain.Message
	err         error

	sentThread string
	sentInput  string
}

func (m *mockChatService) NewThread() string {
	if m.newThreadID == "" {
		return "new-thread"
	}
	return m.newThreadID
}

func (m *mockChatService) Send(_ context.Context, threadID, input string, fn driving.ReplyFunc) error {
	m.sentThread = threadID
	m.sentInput = input
	if m.err != nil {
		return m.err
	}
	for _, r := range m.replies {
		if err := fn(domain.NewAssistantMessage(r)); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockChatService) History(_ context.Context, threadID string) ([]domain.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	msgs, ok := m.history[threadID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return msgs, nil
}

func (m *mockChatService) Checkpoints(
	_ context.Context, _ string, _ domain.ListOptions,
) ([]domain.CheckpointTuple, error) {
	return nil, m.err
}

func (m *mockChatService) Threads(_ context.Context) ([]domain.ThreadSummary, error) {
	return m.threads, m.err
}

func (m *mockChatService) DeleteThread(_ context.Context, _ string) error {
	return m.err
}

func (m *mockChatService) ModelName() string {
	return "mock-model"
}
