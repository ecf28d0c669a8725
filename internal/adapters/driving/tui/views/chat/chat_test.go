package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
)

type mockChatService struct {
	threads  int
	reply    string
	sendErr  error
	history  []domain.Message
	histErr  error
	received []string
}

func (m *mockChatService) NewThread() string {
	m.threads++
	return fmt.Sprintf("thread-%d", m.threads)
}

func (m *mockChatService) Send(_ context.Context, _ string, input string, fn driving.ReplyFunc) error {
	m.received = append(m.received, input)
	if m.sendErr != nil {
		return m.sendErr
	}
	return fn(domain.NewAssistantMessage(m.reply))
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.Message, error) {
	return m.history, m.histErr
}

func (m *mockChatService) Checkpoints(context.Context, string, domain.ListOptions) ([]domain.CheckpointTuple, error) {
	return nil, nil
}

func (m *mockChatService) Threads(context.Context) ([]domain.ThreadSummary, error) { return nil, nil }

func (m *mockChatService) DeleteThread(context.Context, string) error { return nil }

func (m *mockChatService) ModelName() string { return "mock-model" }

func typeText(v *View, text string) {
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// submittedMsg unpacks the batch returned on enter and returns the
// MessageSubmitted it carries.
func submittedMsg(t *testing.T, cmd tea.Cmd) messages.MessageSubmitted {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok, "enter should batch the spinner with the submission")
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(messages.MessageSubmitted); ok {
			return msg
		}
	}
	t.Fatal("no MessageSubmitted in batch")
	return messages.MessageSubmitted{}
}

// submit types text, presses enter and runs the resulting commands to completion.
func submit(t *testing.T, v *View, text string) {
	t.Helper()
	typeText(v, text)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd = v.Update(submittedMsg(t, cmd))
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func TestNewView_StartsThread(t *testing.T) {
	svc := &mockChatService{}
	v := NewView(nil, nil, svc, "", "memory")

	assert.Equal(t, "thread-1", v.ThreadID())
	assert.Equal(t, 1, svc.threads)
}

func TestNewView_ResumesThread(t *testing.T) {
	svc := &mockChatService{}
	v := NewView(nil, nil, svc, "existing", "redis")

	assert.Equal(t, "existing", v.ThreadID())
	assert.Equal(t, 0, svc.threads)
}

func TestSendTurn(t *testing.T) {
	svc := &mockChatService{reply: "Hi there"}
	v := NewView(nil, nil, svc, "", "memory")
	v.SetContext(context.Background())

	submit(t, v, "hello")

	assert.Equal(t, []string{"hello"}, svc.received)
	assert.False(t, v.Pending())
	assert.Equal(t, []domain.Message{
		domain.NewUserMessage("hello"),
		domain.NewAssistantMessage("Hi there"),
	}, v.Transcript())
	assert.Equal(t, "", v.Input())
}

func TestSendTurn_Pending(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "", "memory")

	typeText(v, "hello")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.True(t, v.Pending())
	assert.Equal(t, status.StateThinking, v.status.State())

	typeText(v, "again")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "again", v.Input())
}

func TestSendTurn_Error(t *testing.T) {
	svc := &mockChatService{sendErr: domain.ErrLLMUnavailable}
	v := NewView(nil, nil, svc, "", "memory")

	submit(t, v, "hello")

	assert.ErrorIs(t, v.Err(), domain.ErrLLMUnavailable)
	assert.Equal(t, status.StateError, v.status.State())
	assert.False(t, v.Pending())
}

func TestBlankInputIgnored(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "", "memory")

	typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, v.Transcript())
}

func TestExitCommandQuits(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "", "memory")

	typeText(v, "Quit")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())
}

func TestNewThreadKey(t *testing.T) {
	svc := &mockChatService{reply: "ok"}
	v := NewView(nil, nil, svc, "", "memory")
	submit(t, v, "hello")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyCtrlN})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ThreadStarted{ThreadID: "thread-2"}, cmd())
	assert.Equal(t, "thread-2", v.ThreadID())
	assert.Empty(t, v.Transcript())
}

func TestStaleTurnIgnored(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "", "memory")

	v.Update(messages.TurnCompleted{ThreadID: "other", Replies: []domain.Message{domain.NewAssistantMessage("x")}})

	assert.Empty(t, v.Transcript())
}

func TestHistoryLoaded(t *testing.T) {
	history := []domain.Message{domain.NewUserMessage("earlier"), domain.NewAssistantMessage("reply")}
	svc := &mockChatService{history: history}
	v := NewView(nil, nil, svc, "existing", "redis")

	cmd := v.loadHistory("existing")
	v.Update(cmd())

	assert.Equal(t, history, v.Transcript())
}

func TestHistoryLoaded_UnknownThreadIsEmpty(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "fresh", "memory")

	v.Update(messages.HistoryLoaded{ThreadID: "fresh", Err: domain.ErrNotFound})

	assert.NoError(t, v.Err())
	assert.Empty(t, v.Transcript())
}

func TestHistoryLoaded_Error(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "t", "redis")

	v.Update(messages.HistoryLoaded{ThreadID: "t", Err: errors.New("connection refused")})

	assert.EqualError(t, v.Err(), "connection refused")
}

func TestViewRendersChrome(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, "", "sqlite")
	v.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	out := v.View()

	assert.Contains(t, out, "chatbot")
	assert.Contains(t, out, "thread-1")
	assert.Contains(t, out, "mock-model")
	assert.Contains(t, out, "sqlite")
}
