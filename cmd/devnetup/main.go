package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error onto the process exit code: a crashed
// child propagates its own code, a failed bootstrap exits 2, everything
// else exits 1.
func exitCode(err error) int {
	var ce childExitError
	if errors.As(err, &ce) {
		if ce.code > 0 {
			return ce.code
		}
		return 1
	}
	if errors.Is(err, errBootstrap) {
		return 2
	}
	return 1
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// UpFlags holds flags for the up command
type UpFlags struct {
	SkipBridge bool
}

// StatusFlags holds flags for commands that query a running entrypoint
type StatusFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	upFlags := &UpFlags{}
	statusFlags := &StatusFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createUpCommand(globalFlags, upFlags),
		createStatusCommand(statusFlags),
		createEndpointsCommand(statusFlags),
		createVersionCommand(),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "devnetup",
		Short: "Single-container devnet bootstrap for a validator plus bridge node",
		Long: `Devnetup seeds and launches a validator node, waits for it to produce
blocks, extracts a trusted block hash, bootstraps a bridge node against
it, and supervises both until the container stops.

Examples:
  devnetup up                                  # Launch with built-in defaults
  devnetup up --config devnet.toml             # Launch from a config file
  devnetup status --api-url=http://localhost:8081`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}
