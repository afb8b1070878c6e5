package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morezero/command-registry/internal/config"
	"github.com/morezero/command-registry/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry (COMMS, HTTP, metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	server.SetupLogging(cfg, os.Stdout)
	return server.Run(cfg)
}
