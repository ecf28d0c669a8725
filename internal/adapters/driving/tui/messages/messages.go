// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// MessageSubmitted is sent when the user submits input.
type MessageSubmitted struct {
	ThreadID string
	Content  string
}

// TurnCompleted carries the assistant replies of one turn back to the model.
type TurnCompleted struct {
	ThreadID string
	Replies  []domain.Message
	Err      error
}

// HistoryLoaded carries the stored messages of a resumed thread.
type HistoryLoaded struct {
	ThreadID string
	Messages []domain.Message
	Err      error
}

// ThreadStarted signals a new thread became active.
type ThreadStarted struct {
	ThreadID string
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
