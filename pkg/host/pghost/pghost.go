// Package pghost keeps host state in Postgres tables.
package pghost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/command-registry/pkg/host"
)

const logPrefix = "pghost:pghost"

// lockKey serializes writers through a transaction-scoped advisory lock.
const lockKey int64 = 0x636d6472

// Store implements host.Store on the host_* tables.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store over pool. The schema must already be migrated.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// View loads the state in a read-only repeatable-read transaction.
func (s *Store) View(ctx context.Context, fn func(*host.State) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("%s - begin view: %w", logPrefix, err)
	}
	defer tx.Rollback(ctx)

	state, err := load(ctx, tx)
	if err != nil {
		return err
	}
	return fn(state)
}

// Mutate loads, applies fn and writes the state back under the advisory lock.
func (s *Store) Mutate(ctx context.Context, fn func(*host.State) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin mutate: %w", logPrefix, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("%s - acquire lock: %w", logPrefix, err)
	}

	state, err := load(ctx, tx)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	if err := save(ctx, tx, state); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit: %w", logPrefix, err)
	}
	return nil
}

func load(ctx context.Context, tx pgx.Tx) (*host.State, error) {
	state := host.NewState()

	err := tx.QueryRow(ctx, `SELECT next_id FROM host_meta WHERE id = 1`).Scan(&state.NextID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s - load meta: %w", logPrefix, err)
	}

	rows, err := tx.Query(ctx, `SELECT id, focused FROM host_windows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s - load windows: %w", logPrefix, err)
	}
	state.Windows, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (host.Window, error) {
		var w host.Window
		err := row.Scan(&w.ID, &w.Focused)
		return w, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - scan windows: %w", logPrefix, err)
	}

	rows, err = tx.Query(ctx, `SELECT id, window_id, title, color FROM host_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s - load groups: %w", logPrefix, err)
	}
	state.Groups, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (host.Group, error) {
		var g host.Group
		err := row.Scan(&g.ID, &g.WindowID, &g.Title, &g.Color)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - scan groups: %w", logPrefix, err)
	}

	rows, err = tx.Query(ctx,
		`SELECT id, window_id, position, title, url, active, highlighted, COALESCE(group_id, 0)
		 FROM host_resources
		 ORDER BY window_id, position`)
	if err != nil {
		return nil, fmt.Errorf("%s - load resources: %w", logPrefix, err)
	}
	state.Resources, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (host.Resource, error) {
		var r host.Resource
		err := row.Scan(&r.ID, &r.WindowID, &r.Index, &r.Title, &r.URL, &r.Active, &r.Highlighted, &r.GroupID)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - scan resources: %w", logPrefix, err)
	}

	slog.Debug(fmt.Sprintf("%s - Loaded %d windows, %d resources, %d groups", logPrefix, len(state.Windows), len(state.Resources), len(state.Groups)))
	return state, nil
}

func nullableID(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}

// save replaces the stored rows with state in one batch.
func save(ctx context.Context, tx pgx.Tx, state *host.State) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM host_resources`)
	batch.Queue(`DELETE FROM host_groups`)
	batch.Queue(`DELETE FROM host_windows`)
	batch.Queue(
		`INSERT INTO host_meta (id, next_id) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET next_id = EXCLUDED.next_id`, state.NextID)
	for _, w := range state.Windows {
		batch.Queue(`INSERT INTO host_windows (id, focused) VALUES ($1, $2)`, w.ID, w.Focused)
	}
	for _, g := range state.Groups {
		batch.Queue(`INSERT INTO host_groups (id, window_id, title, color) VALUES ($1, $2, $3, $4)`,
			g.ID, g.WindowID, g.Title, g.Color)
	}
	for _, r := range state.Resources {
		batch.Queue(
			`INSERT INTO host_resources (id, window_id, position, title, url, active, highlighted, group_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, r.WindowID, r.Index, r.Title, r.URL, r.Active, r.Highlighted, nullableID(r.GroupID))
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%s - save state: %w", logPrefix, err)
	}
	return nil
}
