// Package httpjson is the JSON-over-HTTP client shared by the REST LLM
// adapters. Rate limit and overload answers are retried with backoff.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/chatbot/internal/logger"
)

// Defaults applied by New.
const (
	DefaultRetries = 2
	DefaultBackoff = 500 * time.Millisecond
	maxErrorBody   = 4 << 10
)

// Client sends requests to one provider API.
type Client struct {
	Provider string // error prefix, e.g. "openai"
	BaseURL  string
	Header   http.Header // added to every request
	HTTP     *http.Client

	// Retries is how many times a retryable status is retried; Backoff
	// is the first delay, doubled each attempt.
	Retries uint64
	Backoff time.Duration
}

// New returns a client with the default retry policy.
func New(provider, baseURL string, timeout time.Duration) *Client {
	return &Client{
		Provider: provider,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Header:   make(http.Header),
		HTTP:     &http.Client{Timeout: timeout},
		Retries:  DefaultRetries,
		Backoff:  DefaultBackoff,
	}
}

// StatusError is a non-2xx answer.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the provider asked the caller to come back
// later.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout,
		529: // Anthropic "overloaded"
		return true
	}
	return false
}

// Post sends in as JSON to path and decodes the answer into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.Provider, err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Get fetches path and decodes the answer into out. A nil out discards
// the body.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	backoff := retry.WithMaxRetries(c.Retries, retry.NewExponential(c.backoff()))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := c.once(ctx, method, path, body, out)
		var se *StatusError
		if errors.As(err, &se) && se.Retryable() {
			logger.Debug("%s: %s %s attempt %d: status %d", c.Provider, method, path, attempt, se.Code)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", c.Provider, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Provider: c.Provider, Code: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.Provider, err)
	}
	return nil
}

func (c *Client) client() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) backoff() time.Duration {
	if c.Backoff <= 0 {
		return DefaultBackoff
	}
	return c.Backoff
}

// errorMessage pulls the provider's message out of an error body. Both
// {"error":"..."} and {"error":{"message":"..."}} are understood; anything
// else is returned as text.
func errorMessage(raw []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Error) > 0 {
		var s string
		if json.Unmarshal(env.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
