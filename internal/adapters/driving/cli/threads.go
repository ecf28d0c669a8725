package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect stored conversation threads",
	Long:  `List, show, inspect checkpoints of and delete stored conversation threads.`,
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored threads",
	Args:  cobra.NoArgs,
	RunE:  runThreadsList,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Show the messages of a thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsShow,
}

var threadsCheckpointsCmd = &cobra.Command{
	Use:   "checkpoints [thread-id]",
	Short: "List the checkpoints of a thread, newest first",
	Long: `List the checkpoints of a thread, newest first.

Use --before with a checkpoint ID to page back through history, and
--source to keep only input, loop or update checkpoints.`,
	Args: cobra.ExactArgs(1),
	RunE: runThreadsCheckpoints,
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete [thread-id]",
	Short: "Delete a thread and all its checkpoints",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsDelete,
}

func init() {
	threadsCheckpointsCmd.Flags().IntP("limit", "n", 0, "Maximum number of checkpoints (0 = all)")
	threadsCheckpointsCmd.Flags().String("before", "", "Only checkpoints older than this checkpoint ID")
	threadsCheckpointsCmd.Flags().String("source", "", "Only checkpoints with this source (input, loop, update)")

	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsShowCmd)
	threadsCmd.AddCommand(threadsCheckpointsCmd)
	threadsCmd.AddCommand(threadsDeleteCmd)
	rootCmd.AddCommand(threadsCmd)
}

func runThreadsList(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	threads, err := chatService.Threads(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}
	if len(threads) == 0 {
		cmd.Println("No threads stored.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THREAD\tMESSAGES\tUPDATED\tLATEST CHECKPOINT")
	for _, t := range threads {
		updated := "-"
		if !t.UpdatedAt.IsZero() {
			updated = t.UpdatedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.ThreadID, t.MessageCount, updated, t.LatestCheckpointID)
	}
	return w.Flush()
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	messages, err := chatService.History(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load thread %s: %w", args[0], err)
	}

	cmd.Printf("Thread %s (%d messages)\n\n", args[0], len(messages))
	for _, msg := range messages {
		cmd.Printf("[%s] %s\n", msg.Role, msg.Content)
	}
	return nil
}

func runThreadsCheckpoints(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}
	before, _ := cmd.Flags().GetString("before") //nolint:errcheck // registered in init
	source, _ := cmd.Flags().GetString("source") //nolint:errcheck // registered in init

	opts := domain.ListOptions{Limit: limit}
	if before != "" {
		opts.Before = &domain.ThreadConfig{ThreadID: args[0], CheckpointID: before}
	}
	if source != "" {
		opts.Filter = map[string]any{"source": source}
	}

	tuples, err := chatService.Checkpoints(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(tuples) == 0 {
		cmd.Println("No checkpoints found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECKPOINT\tSOURCE\tSTEP\tMESSAGES\tPARENT")
	for _, t := range tuples {
		parent := "-"
		if t.ParentConfig != nil {
			parent = t.ParentConfig.CheckpointID
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			t.Config.CheckpointID, t.Metadata.Source, t.Metadata.Step, len(t.Checkpoint.Messages), parent)
	}
	return w.Flush()
}

func runThreadsDelete(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	if err := chatService.DeleteThread(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", args[0], err)
	}
	cmd.Printf("Deleted thread %s\n", args[0])
	return nil
}
