package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/command-registry/pkg/events"
)

const invokeLogPrefix = "action:invoke"

// Invoke runs one negotiation round for key. The action is called exactly once,
// and only when every parameter has a non-empty argument; otherwise the
// missing parameters come back as requests. Unknown and non-invocable keys
// are reported through Outcome and the log, never through silence.
//
// The returned error is either a describer failure (no execution happened) or
// the action's own failure (execution was attempted once).
func (r *Registry) Invoke(ctx context.Context, key string, args Args) (*Result, error) {
	slog.Debug(fmt.Sprintf("%s - key=%s args=%d", invokeLogPrefix, key, len(args)))

	result := &Result{Key: key, Requests: []ArgumentRequest{}}

	node, ok := r.Resolve(key)
	if !ok {
		slog.Warn(fmt.Sprintf("%s - Command not found: %q", invokeLogPrefix, key))
		result.Outcome = OutcomeNotFound
		return result, nil
	}
	if !node.Invocable() {
		slog.Warn(fmt.Sprintf("%s - Command is not invocable: %q", invokeLogPrefix, key))
		result.Outcome = OutcomeNotInvocable
		return result, nil
	}

	requests, err := r.Negotiate(ctx, node, args)
	if err != nil {
		return nil, fmt.Errorf("%s - negotiate %s: %w", invokeLogPrefix, key, err)
	}
	if len(requests) > 0 {
		result.Outcome = OutcomePending
		result.Requests = requests
		return result, nil
	}

	// The action gets its own copy so later caller mutations cannot leak in.
	bound := make(Args, len(args))
	for k, v := range args {
		bound[k] = v
	}

	started := time.Now()
	runErr := node.fn(ctx, bound)
	r.publish(ctx, key, bound, runErr)
	if runErr != nil {
		slog.Error(fmt.Sprintf("%s - Command %s failed after %s: %v", invokeLogPrefix, key, time.Since(started), runErr))
		return nil, fmt.Errorf("%s - run %s: %w", invokeLogPrefix, key, runErr)
	}

	slog.Info(fmt.Sprintf("%s - Executed %s in %s", invokeLogPrefix, key, time.Since(started)))
	result.Outcome = OutcomeExecuted
	return result, nil
}

func (r *Registry) publish(ctx context.Context, key string, args Args, runErr error) {
	params := make([]string, 0, len(args))
	for name := range args {
		params = append(params, name)
	}
	sort.Strings(params)

	event := &events.InvokedEvent{
		ID:        uuid.NewString(),
		Key:       key,
		Params:    params,
		Succeeded: runErr == nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	if err := r.publisher.PublishInvoked(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish invoked event for %s: %v", invokeLogPrefix, key, err))
	}
}
