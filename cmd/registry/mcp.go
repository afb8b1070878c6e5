package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/morezero/command-registry/internal/server"
	"github.com/morezero/command-registry/pkg/mcpserver"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve an in-process registry as an MCP server on stdio",
		Long: `Builds the registry against the configured host backend and exposes
invoke, query and keys as MCP tools over stdin/stdout. Invoked events are
not published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForServe(); err != nil {
				return err
			}
			// Stdout carries JSON-RPC.
			log.SetOutput(cmd.ErrOrStderr())

			resolved, err := server.LoadBootstrap(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := server.NewRuntime(ctx, server.NewRuntimeParams{Config: cfg, Bootstrap: resolved})
			if err != nil {
				return err
			}
			defer rt.Close()

			return mcpserver.NewServer(mcpserver.NewServerParams{
				Registry:  rt.Registry,
				Bootstrap: resolved,
			}).ServeStdio()
		},
	}
}
