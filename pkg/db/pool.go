// Package db provides the pgx connection pool, SQL migrations and host table
// maintenance.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// NewPool creates a new pgx connection pool from the given database URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}

	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// RunMigrations applies SQL migration files in order. Migrations are written
// to be idempotent, so re-running them on startup is safe.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrations)))

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("%s - migration %s failed: %w", logPrefix, m.Name, err)
		}
		slog.Debug(fmt.Sprintf("%s - Applied %s", logPrefix, m.Name))
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// MigrationStatus prints whether the host schema exists alongside the number
// of migration files found.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
	const statusLogPrefix = "db:MigrationStatus"

	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'host_resources')`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s - failed to check schema: %w", statusLogPrefix, err)
	}

	files, err := LoadMigrations(migrationPath)
	if err != nil {
		return fmt.Errorf("%s - load migration list: %w", statusLogPrefix, err)
	}

	if exists {
		fmt.Printf("Migration status: applied (schema present, %d migration files in %s)\n", len(files), migrationPath)
	} else {
		fmt.Printf("Migration status: not applied (run 'registry migrate up'). %d migration files in %s\n", len(files), migrationPath)
	}
	return nil
}

// MigrationDown is not supported; host migrations are forward-only. Use
// ClearHost to drop state.
func MigrationDown(_ context.Context, _ *pgxpool.Pool, _ string) error {
	fmt.Println("Migration down: not supported (host migrations are forward-only). Use 'registry clear' to drop host state.")
	return nil
}
