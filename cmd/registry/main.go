// Package main is the entrypoint for the command registry (binary name "registry").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morezero/command-registry/internal/config"
	"github.com/morezero/command-registry/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the root without a subcommand
// starts the server.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "registry",
		Short: "Hierarchical command registry with argument negotiation",
		Long: `registry serves a tree of dotted commands (tabs.activate.shift, windows.create, ...)
over COMMS request/reply and HTTP. Callers invoke a key, receive requests for
missing arguments, and re-invoke until the command runs.

Environment: COMMS_URL, HOST_BACKEND (memory|redis|postgres), REDIS_ADDR,
DATABASE_URL, MIGRATION_PATH, REGISTRY_HTTP_ADDR, REGISTRY_BOOTSTRAP_FILE, LOG_LEVEL.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newClearCmd(),
		newEnsureDBCmd(),
		newInvokeCmd(),
		newQueryCmd(),
		newKeysCmd(),
		newMCPCmd(),
	)
	return root
}

// loadConfig loads the environment config and installs the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	server.SetupLogging(cfg, cmd.ErrOrStderr())
	return cfg, nil
}
