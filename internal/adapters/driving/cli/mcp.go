package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve chat threads to MCP clients",
	Long: `Serve the chatbot over the Model Context Protocol.

Tools:
  chat          send a message, optionally on an existing thread
  list_threads  list checkpointed threads
  get_history   read the messages of a thread

Resources:
  chatbot://threads
  chatbot://threads/{threadId}/messages

Stdio is used unless --port is given, in which case the streamable HTTP
transport listens on that port until interrupted.

Example client entry:
  {"mcpServers": {"chatbot": {"command": "chatbot", "args": ["mcp", "serve"]}}}`,
	Args:        cobra.NoArgs,
	Annotations: llmAnnotation,
	RunE:        runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{Chat: chatService})
	if err != nil {
		return err
	}

	if port <= 0 {
		return server.Run(cmd.Context())
	}

	addr := fmt.Sprintf(":%d", port)
	cmd.Printf("MCP server listening on http://localhost%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
