package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	SendFunc    func(ctx context.Context, threadID, input string, fn driving.ReplyFunc) error
	HistoryFunc func(ctx context.Context, threadID string) ([]domain.Message, error)
}

func (m *MockChatService) NewThread() string { return "thread-new" }

func (m *MockChatService) Send(ctx context.Context, threadID, input string, fn driving.ReplyFunc) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, threadID, input, fn)
	}
	return fn(domain.NewAssistantMessage("echo: " + input))
}

func (m *MockChatService) History(ctx context.Context, threadID string) ([]domain.Message, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, threadID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockChatService) Checkpoints(context.Context, string, domain.ListOptions) ([]domain.CheckpointTuple, error) {
	return nil, nil
}

func (m *MockChatService) Threads(context.Context) ([]domain.ThreadSummary, error) { return nil, nil }

func (m *MockChatService) DeleteThread(context.Context, string) error { return nil }

func (m *MockChatService) ModelName() string { return "test-model" }

// Verify interface compliance.
var _ driving.ChatService = (*MockChatService)(nil)

func TestNewPorts(t *testing.T) {
	chat := &MockChatService{}

	ports := NewPorts(chat)

	assert.Equal(t, chat, ports.Chat)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{name: "valid", ports: &Ports{Chat: &MockChatService{}}},
		{name: "missing chat", ports: &Ports{}, wantErr: ErrMissingChatService},
		{name: "nil ports", ports: nil, wantErr: ErrMissingChatService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
