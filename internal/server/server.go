// Package server orchestrates all components: COMMS client, host backend,
// command registry, dispatcher, HTTP endpoints and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/command-registry/internal/config"
	"github.com/morezero/command-registry/pkg/bootstrap"
	"github.com/morezero/command-registry/pkg/commsutil"
	"github.com/morezero/command-registry/pkg/dispatcher"
	"github.com/morezero/command-registry/pkg/events"
)

const logPrefix = "server:server"

// SetupLogging installs the process-wide text logger at the configured level.
// The mcp command logs to stderr so stdout stays a clean JSON-RPC stream.
func SetupLogging(cfg *config.Config, w io.Writer) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// LoadBootstrap loads and validates the bootstrap file named by cfg.
func LoadBootstrap(cfg *config.Config) (*bootstrap.ResolvedBootstrap, error) {
	bootstrapCfg, err := bootstrap.LoadBootstrapConfig(cfg.BootstrapFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load bootstrap config: %w", logPrefix, err)
	}
	resolved, err := bootstrap.CreateResolvedBootstrap(bootstrapCfg)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid bootstrap config: %w", logPrefix, err)
	}
	return resolved, nil
}

// RegistrySubject returns the subject the dispatcher listens on.
func RegistrySubject(cfg *config.Config) string {
	if cfg.RegistrySubject != "" {
		return cfg.RegistrySubject
	}
	return commsutil.SubjectRegistry
}

// Run starts the server, blocks until a shutdown signal, then cleans up.
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Serve(ctx, cfg)
}

// Serve runs the server until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("%s - Starting command-registry", logPrefix))

	// Step 1: Load bootstrap config
	resolved, err := LoadBootstrap(cfg)
	if err != nil {
		return err
	}

	// Step 2: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	defer nc.Drain()

	// Step 3: Host backend and registry
	globalSubject := cfg.EventSubject
	if globalSubject == "" {
		globalSubject = resolved.GlobalEventSubject()
	}
	rt, err := NewRuntime(ctx, NewRuntimeParams{
		Config:    cfg,
		Bootstrap: resolved,
		Publisher: events.NewCommsPublisher(nc, &events.CommsPublisherOpts{GlobalSubject: globalSubject}),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	// Step 4: Subscribe the dispatcher
	subject := RegistrySubject(cfg)
	sub, err := nc.Subscribe(subject, newMsgHandler(ctx, rt, cfg.RequestTimeout))
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
	}
	defer sub.Unsubscribe()
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))

	// Step 5: HTTP endpoints
	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr(),
		Handler:           NewRouter(rt, cfg.HealthCheckTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	slog.Info(fmt.Sprintf("%s - command-registry is ready (protocol %s)", logPrefix, resolved.ProtocolVersion()))

	select {
	case <-ctx.Done():
		slog.Info(fmt.Sprintf("%s - Shutting down", logPrefix))
	case err := <-httpErr:
		slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// newMsgHandler decodes protocol requests, dispatches them under a
// per-request deadline and replies on the message inbox. A panic in an action
// or describer becomes an INTERNAL_ERROR reply.
func newMsgHandler(ctx context.Context, rt *Runtime, requestTimeout time.Duration) comms.MsgHandler {
	return func(msg *comms.Msg) {
		var req dispatcher.RegistryRequest
		defer func() {
			if r := recover(); r != nil {
				slog.Error(fmt.Sprintf("%s - panic handling %s id=%s: %v", logPrefix, req.Method, req.ID, r))
				respond(msg, &dispatcher.RegistryResponse{
					ID: req.ID,
					Ok: false,
					Error: &dispatcher.ErrorDetail{
						Code:    "INTERNAL_ERROR",
						Message: fmt.Sprintf("%s failed: %v", req.Method, r),
					},
				})
			}
		}()

		if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			respond(msg, &dispatcher.RegistryResponse{
				Ok: false,
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			})
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		respond(msg, rt.Dispatch(reqCtx, &req))
	}
}

func respond(msg *comms.Msg, resp *dispatcher.RegistryResponse) {
	if msg.Reply == "" {
		return
	}
	if err := commsutil.RespondPayload(msg, resp); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond: %v", logPrefix, err))
	}
}
