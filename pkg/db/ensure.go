package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

const ensureLogPrefix = "db:ensure"

// safeDBName matches allowed database names (alphanumeric and underscore only).
var safeDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// WithDatabase returns databaseURL pointing at another database on the same
// server. Credentials and query parameters are kept.
func WithDatabase(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

// targetDatabase extracts the database name from databaseURL and builds the
// maintenance URL used to create it.
func targetDatabase(databaseURL string) (name, adminURL string, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	name = strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if name == "" {
		return "", "", fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	}
	if !safeDBName.MatchString(name) {
		return "", "", fmt.Errorf("%s - database name %q contains invalid characters", ensureLogPrefix, name)
	}
	admin := *u
	admin.Path = "/postgres"
	return name, admin.String(), nil
}

// EnsureDatabase creates the database named in databaseURL when it does not
// exist yet. The host schema needs no extensions; run migrations afterwards.
func EnsureDatabase(ctx context.Context, databaseURL string) error {
	name, adminURL, err := targetDatabase(databaseURL)
	if err != nil {
		return err
	}

	connConfig, err := pgx.ParseConfig(adminURL)
	if err != nil {
		return fmt.Errorf("%s - failed to parse postgres URL: %w", ensureLogPrefix, err)
	}
	connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to postgres: %w", ensureLogPrefix, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("%s - failed to check database: %w", ensureLogPrefix, err)
	}
	if exists {
		slog.Info(fmt.Sprintf("%s - Database %q already exists", ensureLogPrefix, name))
		return nil
	}

	slog.Info(fmt.Sprintf("%s - Creating database %q", ensureLogPrefix, name))
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("%s - CREATE DATABASE failed: %w", ensureLogPrefix, err)
	}
	return nil
}
