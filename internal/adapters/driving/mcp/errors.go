// Package mcp provides an MCP (Model Context Protocol) server adapter for the chatbot.
// It lets AI assistants hold conversations and read stored threads.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")
