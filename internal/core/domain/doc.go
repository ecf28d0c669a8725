// Package domain defines the core business entities for the chatbot.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Message: A single chat turn (system, user or assistant)
//   - Checkpoint: A snapshot of a thread's graph state
//   - CheckpointTuple: A checkpoint with its metadata and parent link
//   - Descriptor: The development container descriptor
//   - Plan: The ordered bootstrap steps for the development environment
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
