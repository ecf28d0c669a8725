// Package driving holds the use cases the CLI, TUI and MCP adapters call:
// chatting on a thread, reading checkpoints, editing settings and
// preparing the devcontainer. internal/core/services implements them.
package driving
