// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. The state graph that drives every chat
// turn lives here too, so it can be reused with any CheckpointSaver.
package services
