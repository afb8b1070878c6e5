package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/command-registry/pkg/db"
)

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres host schema",
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
					migrations, err := db.LoadMigrations(migrationPath)
					if err != nil {
						return fmt.Errorf("load migrations: %w", err)
					}
					return db.RunMigrations(ctx, pool, migrations)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back (host migrations are forward-only)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd, db.MigrationDown)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd, db.MigrationStatus)
			},
		},
	)
	return migrate
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Truncate host tables; schema is preserved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool, _ string) error {
				if err := db.ClearHost(ctx, pool); err != nil {
					return fmt.Errorf("clear host: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Host state cleared.")
				return nil
			})
		},
	}
}

// withPool opens a pool from DATABASE_URL for the duration of fn.
func withPool(cmd *cobra.Command, fn func(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, pool, cfg.MigrationPath)
}

func newEnsureDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-db [name]",
		Short: "Create the database from DATABASE_URL, or a sibling named name, if missing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateForDB(); err != nil {
				return err
			}
			target := cfg.DatabaseURL
			if len(args) == 1 {
				if target, err = db.WithDatabase(cfg.DatabaseURL, args[0]); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := db.EnsureDatabase(ctx, target); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database is ready.")
			return nil
		},
	}
}
