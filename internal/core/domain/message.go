package domain

import "strings"

// Role identifies who authored a chat message.
type Role string

// Message roles understood by every LLM provider.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Message is a single turn in a conversation thread.
type Message struct {
	// ID uniquely identifies the message within its thread.
	// The message reducer assigns one when empty.
	ID string `json:"id"`

	// Role is the author of the message.
	Role Role `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// NewUserMessage creates a user message without an ID.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message without an ID.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsBlank reports whether the message carries no visible text.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// IsExitCommand reports whether a line typed at the chat prompt ends the session.
func IsExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "quit", "exit", "q":
		return true
	default:
		return false
	}
}
