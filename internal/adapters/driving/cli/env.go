package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

// DefaultComposeFile is the descriptor env check reads without an argument.
const DefaultComposeFile = ".devcontainer/docker-compose.yml"

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Development environment commands",
	Long: `Validate the devcontainer descriptor, bootstrap the workspace and wait
for the cache service.`,
}

var envCheckCmd = &cobra.Command{
	Use:   "check [compose-file]",
	Short: "Validate the devcontainer descriptor",
	Long: `Validate the devcontainer compose file.

The descriptor must declare exactly two services: one mounting the workspace
and one publishing the cache port 6379, both joined to a named bridge
network. Defaults to ` + DefaultComposeFile + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEnvCheck,
}

var envBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Run the bootstrap plan",
	Long: `Run the bootstrap plan step by step, stopping at the first failure.

Without --plan the built-in plan runs: download dependencies, wait for the
cache service, verify dependencies.

Examples:
  chatbot env bootstrap
  chatbot env bootstrap --plan .devcontainer/bootstrap.yaml`,
	Args: cobra.NoArgs,
	RunE: runEnvBootstrap,
}

var envWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until the checkpoint backend answers",
	Args:  cobra.NoArgs,
	RunE:  runEnvWait,
}

func init() {
	envBootstrapCmd.Flags().StringP("plan", "p", "", "Bootstrap plan file (YAML)")
	envCmd.AddCommand(envCheckCmd)
	envCmd.AddCommand(envBootstrapCmd)
	envCmd.AddCommand(envWaitCmd)
	rootCmd.AddCommand(envCmd)
}

func runEnvCheck(cmd *cobra.Command, args []string) error {
	if environmentService == nil {
		return errors.New("environment service not configured")
	}

	path := DefaultComposeFile
	if len(args) == 1 {
		path = args[0]
	}

	desc, err := environmentService.Check(path)
	if desc != nil {
		printDescriptor(cmd, desc)
	}
	if err != nil {
		return err
	}

	host, port, _ := desc.CacheEndpoint() //nolint:errcheck // validated above
	cmd.Printf("Cache reachable at %s:%d\n", host, port)
	cmd.Println("Descriptor is valid.")
	return nil
}

func printDescriptor(cmd *cobra.Command, desc *domain.Descriptor) {
	cmd.Printf("Descriptor: %s\n", desc.Path)
	for _, name := range desc.ServiceNames() {
		svc := desc.Services[name]
		origin := svc.Image
		if origin == "" {
			origin = "build " + svc.Build
		}
		cmd.Printf("  %s (%s)\n", name, origin)
		for _, v := range svc.Volumes {
			cmd.Printf("    volume  %s -> %s\n", v.Source, v.Target)
		}
		for _, p := range svc.Ports {
			cmd.Printf("    port    %d -> %d/%s\n", p.Host, p.Container, orDefault(p.Protocol, "tcp"))
		}
		if len(svc.Networks) > 0 {
			cmd.Printf("    networks %s\n", strings.Join(svc.Networks, ", "))
		}
	}
}

func runEnvBootstrap(cmd *cobra.Command, _ []string) error {
	if environmentService == nil {
		return errors.New("environment service not configured")
	}

	plan, err := cmd.Flags().GetString("plan")
	if err != nil {
		return fmt.Errorf("getting plan flag: %w", err)
	}

	results, err := environmentService.Bootstrap(cmd.Context(), plan, cmd.OutOrStdout())
	cmd.Println()
	for _, r := range results {
		mark := "ok"
		if !r.Succeeded() {
			mark = fmt.Sprintf("FAILED (exit %d)", r.ExitCode)
		}
		cmd.Printf("  %-24s %s in %s\n", r.Name, mark, r.Duration.Round(time.Millisecond))
	}
	if err != nil {
		return err
	}
	cmd.Println("Bootstrap complete.")
	return nil
}

func runEnvWait(cmd *cobra.Command, _ []string) error {
	if environmentService == nil {
		return errors.New("environment service not configured")
	}

	cmd.Printf("Waiting for %s checkpoint backend... ", orDefault(activeBackend.String(), "configured"))
	if err := environmentService.WaitForCache(cmd.Context()); err != nil {
		cmd.Println("FAILED")
		return err
	}
	cmd.Println("ready")
	return nil
}
