// Command chatbot is a terminal chatbot whose conversations are
// checkpointed to Redis, SQLite or memory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/cli"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetServiceFactory(buildServices)

	err := cli.Execute(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
