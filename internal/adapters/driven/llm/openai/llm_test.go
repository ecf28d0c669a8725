package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(Config{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)
	svc.api.Backoff = time.Millisecond
	return svc
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc, err := NewLLMService(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultBaseURL, svc.api.BaseURL)
	assert.NoError(t, svc.Close())
}

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorContains(t, err, "API key is required")
}

func TestChat(t *testing.T) {
	var got completionRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi!"}}]}`))
	})

	reply, err := svc.Chat(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "Be brief."},
		{Role: domain.RoleUser, Content: "hello"},
	}, driven.ChatOptions{MaxTokens: 32})

	require.NoError(t, err)
	assert.Equal(t, "Hi!", reply)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 32, got.MaxTokens)
	assert.Equal(t, []completionMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "hello"},
	}, got.Messages)
}

func TestChat_APIError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
	})

	_, err := svc.Chat(context.Background(), []domain.Message{domain.NewUserMessage("hi")}, driven.ChatOptions{})

	assert.ErrorContains(t, err, "Incorrect API key")
}

func TestChat_NonJSONError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := svc.Chat(context.Background(), []domain.Message{domain.NewUserMessage("hi")}, driven.ChatOptions{})

	assert.ErrorContains(t, err, "status 502")
}

func TestChat_NoChoices(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := svc.Chat(context.Background(), []domain.Message{domain.NewUserMessage("hi")}, driven.ChatOptions{})

	assert.ErrorContains(t, err, "no response choices")
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	assert.NoError(t, svc.Ping(context.Background()))

	bad := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.ErrorContains(t, bad.Ping(context.Background()), "status 401")
}
