package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

const (
	chatPrompt  = ":> "
	replyPrefix = "-> "
	goodbye     = "Goodbye!"
)

// chatThread is shared by the root command and chat subcommand.
var chatThread string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat session in the terminal.

Type a message at the :> prompt and press enter. Replies are printed
prefixed with ->. Type quit, exit or q (or press Ctrl+D) to leave.

Each session runs on a thread. Pass --thread to resume an earlier one,
otherwise a new thread is started.`,
	Annotations: llmAnnotation,
	Args:        cobra.NoArgs,
	RunE:        runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatThread, "thread", "t", "", "Resume an existing thread")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	threadID := chatThread
	if threadID == "" {
		threadID = chatService.NewThread()
	}
	fmt.Fprintf(out, "Thread %s (model %s). Type quit to exit.\n", threadID, chatService.ModelName())

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, chatPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, goodbye)
			return scanner.Err()
		}

		input := scanner.Text()
		if domain.IsExitCommand(input) {
			fmt.Fprintln(out, goodbye)
			return nil
		}
		if strings.TrimSpace(input) == "" {
			continue
		}

		err := chatService.Send(ctx, threadID, input, func(reply domain.Message) error {
			_, err := fmt.Fprintln(out, replyPrefix+reply.Content)
			return err
		})
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrLLMUnavailable), ctx.Err() != nil:
			return err
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
}
