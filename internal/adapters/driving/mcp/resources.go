package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

const uriScheme = "chatbot://"

// registerResources exposes the thread list and each thread's messages.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "threads",
		Name:        "threads",
		Description: "List of stored conversation threads",
		MIMEType:    "application/json",
	}, s.handleThreadsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "threads/{threadId}/messages",
		Name:        "thread-messages",
		Description: "Messages of a specific conversation thread",
		MIMEType:    "application/json",
	}, s.handleMessagesResource)
}

func (s *Server) handleThreadsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	threads, err := s.listThreads(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(req.Params.URI, threads)
}

// handleMessagesResource answers unknown threads with a not-found error.
func (s *Server) handleMessagesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	threadID := threadFromURI(req.Params.URI)
	if threadID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	messages, err := s.history(ctx, threadID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, err
	}
	return jsonResult(req.Params.URI, messages)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// threadFromURI returns the id in chatbot://threads/{id}/messages, or ""
// for any other shape.
func threadFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"threads/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/messages")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
