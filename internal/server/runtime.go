package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/command-registry/internal/config"
	"github.com/morezero/command-registry/internal/metrics"
	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/bootstrap"
	"github.com/morezero/command-registry/pkg/commands"
	"github.com/morezero/command-registry/pkg/db"
	"github.com/morezero/command-registry/pkg/dispatcher"
	"github.com/morezero/command-registry/pkg/events"
	"github.com/morezero/command-registry/pkg/host"
	"github.com/morezero/command-registry/pkg/host/memhost"
	"github.com/morezero/command-registry/pkg/host/pghost"
	"github.com/morezero/command-registry/pkg/host/redishost"
)

const runtimeLogPrefix = "server:runtime"

// Runtime is everything needed to answer protocol requests, independent of
// the transport carrying them.
type Runtime struct {
	Bootstrap  *bootstrap.ResolvedBootstrap
	Host       host.Operations
	Registry   *action.Registry
	Dispatcher *dispatcher.Dispatcher
	Metrics    *metrics.Metrics

	closers []func()
}

// NewRuntimeParams holds parameters for NewRuntime.
type NewRuntimeParams struct {
	Config    *config.Config
	Bootstrap *bootstrap.ResolvedBootstrap
	// Publisher receives invoked events. Nil disables publishing.
	Publisher events.EventPublisher
	// Host overrides the backend selected by Config.HostBackend.
	Host host.Operations
}

// NewRuntime opens the host backend and builds the command registry on top
// of it.
func NewRuntime(ctx context.Context, params NewRuntimeParams) (*Runtime, error) {
	rt := &Runtime{Bootstrap: params.Bootstrap, Metrics: metrics.New()}
	checks := map[string]dispatcher.HealthCheck{}

	if params.Host != nil {
		rt.Host = params.Host
		checks["host"] = func(context.Context) error { return nil }
	} else {
		ops, check, err := rt.openHost(ctx, params.Config)
		if err != nil {
			return nil, err
		}
		rt.Host = ops
		checks["host"] = check
	}

	root := commands.Build(rt.Host, commands.Options{
		Strategy:   params.Bootstrap.Strategy(),
		GroupTitle: params.Bootstrap.GroupTitle(),
		GroupColor: params.Bootstrap.GroupColor(),
	})
	reg, err := action.NewRegistry(action.NewRegistryParams{Root: root, Publisher: params.Publisher})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("%s - build registry: %w", runtimeLogPrefix, err)
	}
	rt.Registry = reg
	rt.Dispatcher = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Registry:  reg,
		Bootstrap: params.Bootstrap,
		Checks:    checks,
	})
	return rt, nil
}

// openHost selects the host backend named by cfg.HostBackend.
func (rt *Runtime) openHost(ctx context.Context, cfg *config.Config) (host.Operations, dispatcher.HealthCheck, error) {
	switch cfg.HostBackend {
	case config.BackendRedis:
		store := redishost.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redishost.WithPrefix(cfg.RedisPrefix))
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("%s - redis at %s: %w", runtimeLogPrefix, cfg.RedisAddr, err)
		}
		rt.closers = append(rt.closers, func() { store.Close() })
		slog.Info(fmt.Sprintf("%s - Host state in redis at %s", runtimeLogPrefix, cfg.RedisAddr))
		return host.NewStoreOperations(store), store.Ping, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.RunMigrations {
			migrations, err := db.LoadMigrations(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("%s - failed to load migrations: %w", runtimeLogPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("%s - failed to run migrations: %w", runtimeLogPrefix, err)
			}
		}
		rt.closers = append(rt.closers, pool.Close)
		slog.Info(fmt.Sprintf("%s - Host state in postgres", runtimeLogPrefix))
		return host.NewStoreOperations(pghost.New(pool)), pool.Ping, nil

	default:
		slog.Info(fmt.Sprintf("%s - Host state in memory", runtimeLogPrefix))
		return memhost.NewOperations(), func(context.Context) error { return nil }, nil
	}
}

// Dispatch runs one request through the dispatcher and records metrics.
func (rt *Runtime) Dispatch(ctx context.Context, req *dispatcher.RegistryRequest) *dispatcher.RegistryResponse {
	started := time.Now()
	resp := rt.Dispatcher.Dispatch(ctx, req)
	rt.Metrics.ObserveRequest(req.Method, resp.Ok)

	if req.Method == dispatcher.MethodInvoke {
		outcome := "error"
		if result, ok := resp.Result.(*action.Result); ok && resp.Ok {
			outcome = string(result.Outcome)
		}
		rt.Metrics.ObserveInvocation(outcome, time.Since(started))
	}
	return resp
}

// Close releases backend connections.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
