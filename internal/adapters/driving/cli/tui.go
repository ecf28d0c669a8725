package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/tui"
)

var tuiThread string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for the chatbot.

The TUI shows the conversation with rendered markdown, an input line and a
status bar with the thread, model and checkpoint backend.

Controls:
  Enter          - Send message
  Ctrl+N         - Start a new thread
  PgUp/PgDn      - Scroll the conversation
  Esc, Ctrl+C    - Quit`,
	Annotations: llmAnnotation,
	Args:        cobra.NoArgs,
	RunE:        runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiThread, "thread", "t", "", "Resume an existing thread")
	rootCmd.AddCommand(tuiCmd)
}

// newTUIApp builds the TUI over the configured chat service.
func newTUIApp(cmd *cobra.Command) (*tui.App, error) {
	app, err := tui.NewApp(tui.NewPorts(chatService), tui.Options{
		ThreadID: tuiThread,
		Backend:  activeBackend.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	return app.WithContext(cmd.Context()), nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := newTUIApp(cmd)
	if err != nil {
		return err
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cmd.Printf("Thread %s\n", app.ThreadID())
	return nil
}
