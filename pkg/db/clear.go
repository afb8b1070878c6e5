package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearHost removes all host windows, groups and resources and resets the id
// allocator. The schema is preserved.
func ClearHost(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing host tables", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		host_resources,
		host_groups,
		host_windows,
		host_meta
		CASCADE`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Host state cleared", clearLogPrefix))
	return nil
}
