package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// The chatbot cannot answer without one.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrCheckpointUnavailable indicates the checkpoint backend cannot be reached.
	ErrCheckpointUnavailable = errors.New("checkpoint backend unavailable")

	// Graph Errors.

	// ErrInvalidGraph indicates a state graph failed structural validation.
	ErrInvalidGraph = errors.New("invalid graph")

	// Environment Errors.

	// ErrInvalidDescriptor indicates the container descriptor breaks the devcontainer contract.
	ErrInvalidDescriptor = errors.New("invalid container descriptor")

	// ErrStepFailed indicates a bootstrap step exited unsuccessfully.
	ErrStepFailed = errors.New("bootstrap step failed")
)
