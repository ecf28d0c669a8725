package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatbotNode is the name of the graph node that asks the LLM for a reply.
const ChatbotNode = "chatbot"

// ChatService runs chat turns through a START -> chatbot -> END graph.
type ChatService struct {
	graph   *Graph
	saver   driven.CheckpointSaver
	llm     driven.LLMService
	prompts driven.PromptStore
	opts    driven.ChatOptions
}

// NewChatService creates a chat service.
// saver may be nil (history is then not kept between turns).
// llm may be nil; Send then fails with domain.ErrLLMUnavailable.
// prompts may be nil; no system prompt is sent then.
func NewChatService(
	saver driven.CheckpointSaver,
	llm driven.LLMService,
	prompts driven.PromptStore,
) (*ChatService, error) {
	s := &ChatService{
		saver:   saver,
		llm:     llm,
		prompts: prompts,
	}

	graph, err := NewStateGraph().
		AddNode(ChatbotNode, s.chatbot).
		AddEdge(START, ChatbotNode).
		AddEdge(ChatbotNode, END).
		Compile(saver)
	if err != nil {
		return nil, fmt.Errorf("compile chat graph: %w", err)
	}
	s.graph = graph

	return s, nil
}

// SetChatOptions overrides generation options passed to the LLM.
func (s *ChatService) SetChatOptions(opts driven.ChatOptions) {
	s.opts = opts
}

// NewThread returns a fresh thread ID.
func (s *ChatService) NewThread() string {
	return uuid.NewString()
}

// Send runs one user turn and streams assistant replies to fn.
func (s *ChatService) Send(ctx context.Context, threadID, input string, fn driving.ReplyFunc) error {
	if threadID == "" {
		return fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput)
	}
	msg := domain.NewUserMessage(input)
	if msg.IsBlank() {
		return fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return domain.ErrLLMUnavailable
	}

	_, err := s.graph.Stream(ctx, []domain.Message{msg}, domain.ThreadConfig{ThreadID: threadID},
		func(ev Event) error {
			if fn == nil {
				return nil
			}
			for _, m := range ev.Messages {
				if m.Role != domain.RoleAssistant {
					continue
				}
				if err := fn(m); err != nil {
					return err
				}
			}
			return nil
		})
	return err
}

// History returns the messages of the latest checkpoint of a thread.
func (s *ChatService) History(ctx context.Context, threadID string) ([]domain.Message, error) {
	tuple, err := s.graph.State(ctx, domain.ThreadConfig{ThreadID: threadID})
	if err != nil {
		return nil, err
	}
	if tuple == nil {
		return nil, fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}
	return tuple.Checkpoint.Messages, nil
}

// Checkpoints lists a thread's checkpoints, newest first.
func (s *ChatService) Checkpoints(
	ctx context.Context,
	threadID string,
	opts domain.ListOptions,
) ([]domain.CheckpointTuple, error) {
	if s.saver == nil {
		return nil, domain.ErrCheckpointUnavailable
	}
	return s.saver.List(ctx, &domain.ThreadConfig{ThreadID: threadID}, opts)
}

// Threads summarises every stored thread.
func (s *ChatService) Threads(ctx context.Context) ([]domain.ThreadSummary, error) {
	if s.saver == nil {
		return nil, domain.ErrCheckpointUnavailable
	}
	return s.saver.Threads(ctx)
}

// DeleteThread removes a thread and all its checkpoints.
func (s *ChatService) DeleteThread(ctx context.Context, threadID string) error {
	if s.saver == nil {
		return domain.ErrCheckpointUnavailable
	}
	if err := s.saver.DeleteThread(ctx, threadID); err != nil {
		return err
	}
	logger.Info("Deleted thread %s", threadID)
	return nil
}

// ModelName returns the configured model, or empty when no LLM is set up.
func (s *ChatService) ModelName() string {
	if s.llm == nil {
		return ""
	}
	return s.llm.ModelName()
}

// chatbot is the graph node: system prompt plus transcript in, one reply out.
func (s *ChatService) chatbot(ctx context.Context, messages []domain.Message) ([]domain.Message, error) {
	prompt := make([]domain.Message, 0, len(messages)+1)
	if system := s.systemPrompt(); system != "" {
		prompt = append(prompt, domain.Message{Role: domain.RoleSystem, Content: system})
	}
	prompt = append(prompt, messages...)

	reply, err := s.llm.Chat(ctx, prompt, s.opts)
	if err != nil {
		return nil, fmt.Errorf("llm chat: %w", err)
	}
	return []domain.Message{domain.NewAssistantMessage(reply)}, nil
}

func (s *ChatService) systemPrompt() string {
	if s.prompts == nil {
		return ""
	}
	prompt, err := s.prompts.Load(driven.PromptChatSystem)
	if err != nil {
		logger.Warn("Failed to load %s prompt: %v", driven.PromptChatSystem, err)
		return ""
	}
	return prompt
}
