// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConfigStore: Application configuration
//   - CheckpointSaver: Conversation checkpoint persistence (Redis, SQLite, memory)
//   - EnvironmentLoader: Reads the container descriptor and bootstrap plan
//   - CommandExecutor: Runs bootstrap step commands
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Language model operations. Without it, chat turns fail with
//     domain.ErrLLMUnavailable but thread history stays readable.
//   - PromptStore: User-editable prompt templates. Without it, built-in defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
