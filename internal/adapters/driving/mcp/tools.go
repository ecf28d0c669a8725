package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	ThreadID string `json:"thread_id,omitempty" jsonschema:"thread to continue; omit to start a new thread"`
	Message  string `json:"message" jsonschema:"the user message to send"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	ThreadID string   `json:"thread_id"`
	Replies  []string `json:"replies"`
}

// ListThreadsInput is the (empty) input schema for the list_threads tool.
type ListThreadsInput struct{}

// ListThreadsOutput is the output schema for the list_threads tool.
type ListThreadsOutput struct {
	Threads []ThreadOutput `json:"threads"`
	Count   int            `json:"count"`
}

// ThreadOutput summarises one stored thread.
type ThreadOutput struct {
	ThreadID           string `json:"thread_id"`
	MessageCount       int    `json:"message_count"`
	LatestCheckpointID string `json:"latest_checkpoint_id"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// GetHistoryInput is the input schema for the get_history tool.
type GetHistoryInput struct {
	ThreadID string `json:"thread_id" jsonschema:"the thread to read"`
}

// GetHistoryOutput is the output schema for the get_history tool.
type GetHistoryOutput struct {
	ThreadID string          `json:"thread_id"`
	Messages []MessageOutput `json:"messages"`
}

// MessageOutput is one message of a thread.
type MessageOutput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Send a message to the chatbot and get its reply. Omit thread_id to start a new conversation.",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_threads",
		Description: "List stored conversation threads",
	}, s.handleListThreads)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_history",
		Description: "Get the messages of a conversation thread",
	}, s.handleGetHistory)
}

// handleChat runs one turn and returns the assistant replies.
func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	threadID := input.ThreadID
	if threadID == "" {
		threadID = s.ports.Chat.NewThread()
	}

	output := ChatOutput{ThreadID: threadID, Replies: []string{}}
	err := s.ports.Chat.Send(ctx, threadID, input.Message, func(reply domain.Message) error {
		output.Replies = append(output.Replies, reply.Content)
		return nil
	})
	if err != nil {
		return nil, ChatOutput{}, fmt.Errorf("chat: %w", err)
	}

	return nil, output, nil
}

// handleListThreads lists stored threads.
func (s *Server) handleListThreads(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListThreadsInput,
) (*mcp.CallToolResult, ListThreadsOutput, error) {
	threads, err := s.listThreads(ctx)
	if err != nil {
		return nil, ListThreadsOutput{}, err
	}
	return nil, ListThreadsOutput{Threads: threads, Count: len(threads)}, nil
}

// handleGetHistory returns the messages of one thread.
func (s *Server) handleGetHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetHistoryInput,
) (*mcp.CallToolResult, GetHistoryOutput, error) {
	if input.ThreadID == "" {
		return nil, GetHistoryOutput{}, fmt.Errorf("%w: thread_id is required", domain.ErrInvalidInput)
	}

	messages, err := s.history(ctx, input.ThreadID)
	if err != nil {
		return nil, GetHistoryOutput{}, err
	}
	return nil, GetHistoryOutput{ThreadID: input.ThreadID, Messages: messages}, nil
}

func (s *Server) listThreads(ctx context.Context) ([]ThreadOutput, error) {
	threads, err := s.ports.Chat.Threads(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}

	out := make([]ThreadOutput, len(threads))
	for i, t := range threads {
		out[i] = ThreadOutput{
			ThreadID:           t.ThreadID,
			MessageCount:       t.MessageCount,
			LatestCheckpointID: t.LatestCheckpointID,
		}
		if !t.UpdatedAt.IsZero() {
			out[i].UpdatedAt = t.UpdatedAt.UTC().Format(time.RFC3339)
		}
	}
	return out, nil
}

func (s *Server) history(ctx context.Context, threadID string) ([]MessageOutput, error) {
	messages, err := s.ports.Chat.History(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("reading thread %s: %w", threadID, err)
	}

	out := make([]MessageOutput, len(messages))
	for i, msg := range messages {
		out[i] = MessageOutput{Role: msg.Role.String(), Content: msg.Content}
	}
	return out, nil
}
