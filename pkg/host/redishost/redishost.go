// Package redishost keeps host state as a JSON document in Redis so several
// registry processes can share one view of windows and resources.
package redishost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/morezero/command-registry/pkg/host"
)

const logPrefix = "redishost:redishost"

// maxRetries bounds optimistic transaction retries under write contention.
const maxRetries = 16

// Store implements host.Store on a single Redis key.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL expires the state after ttl without writes. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// New connects a store to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: "command-registry:host:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key() string {
	return s.prefix + "state"
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Clear removes the stored state.
func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key()).Err()
}

func load(ctx context.Context, c backend.Cmdable, key string) (*host.State, error) {
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, backend.Nil) {
		return host.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - get %s: %w", logPrefix, key, err)
	}
	var state host.State
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("%s - decode %s: %w", logPrefix, key, err)
	}
	return &state, nil
}

// View loads the current state and passes it to fn.
func (s *Store) View(ctx context.Context, fn func(*host.State) error) error {
	state, err := load(ctx, s.client, s.key())
	if err != nil {
		return err
	}
	return fn(state)
}

// Mutate applies fn inside a WATCH/MULTI transaction, retrying when another
// writer changed the key in between.
func (s *Store) Mutate(ctx context.Context, fn func(*host.State) error) error {
	key := s.key()
	txf := func(tx *backend.Tx) error {
		state, err := load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("%s - encode state: %w", logPrefix, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, backend.TxFailedErr) {
			return err
		}
		slog.Debug(fmt.Sprintf("%s - transaction conflict on %s, attempt %d", logPrefix, key, attempt))
	}
	return fmt.Errorf("%s - gave up on %s after %d conflicting attempts", logPrefix, key, maxRetries)
}
