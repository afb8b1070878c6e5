package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/bootstrap"
	"github.com/morezero/command-registry/pkg/semver"
)

const logPrefix = "dispatcher:dispatch"

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Dispatcher routes COMMS requests to registry methods.
type Dispatcher struct {
	registry  *action.Registry
	bootstrap *bootstrap.ResolvedBootstrap
	checks    map[string]HealthCheck
}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Registry  *action.Registry
	Bootstrap *bootstrap.ResolvedBootstrap
	// Checks are run by the health method, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{
		registry:  params.Registry,
		bootstrap: params.Bootstrap,
		checks:    params.Checks,
	}
}

// Dispatch routes a request to the appropriate registry method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *RegistryRequest) *RegistryResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	if req.Ctx != nil && req.Ctx.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Ctx.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	switch req.Method {
	case MethodInvoke:
		return d.handleInvoke(ctx, req)
	case MethodQuery:
		return d.handleQuery(ctx, req)
	case MethodKeys:
		return d.handleKeys(ctx, req)
	case MethodHealth:
		return d.handleHealth(ctx, req)
	default:
		return &RegistryResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Code:      "METHOD_NOT_FOUND",
				Message:   fmt.Sprintf("Unknown method: %s", req.Method),
				Retryable: false,
			},
		}
	}
}

// decodeParams unmarshals optional params; absent params leave v untouched.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (d *Dispatcher) resolveAlias(key string) string {
	if d.bootstrap == nil {
		return key
	}
	resolved := d.bootstrap.ResolveAlias(key)
	if resolved != key {
		slog.Debug(fmt.Sprintf("%s - alias %s -> %s", logPrefix, key, resolved))
	}
	return resolved
}

func (d *Dispatcher) handleInvoke(ctx context.Context, req *RegistryRequest) *RegistryResponse {
	var input InvokeParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse invoke params", false)
	}
	// An empty key is left to the registry, which reports it as not_found.
	result, err := d.registry.Invoke(ctx, d.resolveAlias(input.Key), input.Args)
	if err != nil {
		return invokeErrorToResponse(req.ID, err)
	}
	// Report the key as the caller sent it so multi-round clients can match.
	result.Key = input.Key
	return &RegistryResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleQuery(_ context.Context, req *RegistryRequest) *RegistryResponse {
	var input QueryParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, "INVALID_ARGUMENT", "Failed to parse query params", false)
	}

	if input.Ver != "" && d.bootstrap != nil {
		if err := semver.CheckConstraint(d.bootstrap.ProtocolVersion(), input.Ver); err != nil {
			return &RegistryResponse{
				ID: req.ID,
				Ok: false,
				Error: &ErrorDetail{
					Code:    "VERSION_MISMATCH",
					Message: fmt.Sprintf("Protocol version %s does not satisfy %s", d.bootstrap.ProtocolVersion(), input.Ver),
					Details: map[string]string{"protocolVersion": d.bootstrap.ProtocolVersion(), "ver": input.Ver},
				},
			}
		}
	}

	key := input.Key
	if key != "" {
		key = d.resolveAlias(key)
	}
	result, err := d.registry.Describe(key)
	if err != nil {
		return registryErrorToResponse(req.ID, err)
	}
	return &RegistryResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleKeys(_ context.Context, req *RegistryRequest) *RegistryResponse {
	return &RegistryResponse{ID: req.ID, Ok: true, Result: &KeysResult{Keys: d.registry.InvocableKeys()}}
}

func (d *Dispatcher) handleHealth(ctx context.Context, req *RegistryRequest) *RegistryResponse {
	return &RegistryResponse{ID: req.ID, Ok: true, Result: d.Health(ctx)}
}

// Health runs every registered check.
func (d *Dispatcher) Health(ctx context.Context) *HealthResult {
	result := &HealthResult{
		Status:    "healthy",
		Checks:    make(map[string]string, len(d.checks)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if d.bootstrap != nil {
		result.ProtocolVersion = d.bootstrap.ProtocolVersion()
	}
	for name, check := range d.checks {
		if err := check(ctx); err != nil {
			slog.Warn(fmt.Sprintf("%s - health check %s failed: %v", logPrefix, name, err))
			result.Checks[name] = err.Error()
			result.Status = "degraded"
			continue
		}
		result.Checks[name] = "ok"
	}
	return result
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *RegistryResponse {
	return &RegistryResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func registryErrorToResponse(id string, err error) *RegistryResponse {
	var regErr *action.RegistryError
	if errors.As(err, &regErr) {
		return &RegistryResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      regErr.Code,
				Message:   regErr.Message,
				Details:   regErr.Details,
				Retryable: false,
			},
		}
	}
	return errorResponse(id, "INTERNAL_ERROR", err.Error(), true)
}

// invokeErrorToResponse maps describer and action failures. Neither is
// retried by the registry; a deadline is reported as retryable.
func invokeErrorToResponse(id string, err error) *RegistryResponse {
	var regErr *action.RegistryError
	if errors.As(err, &regErr) {
		return registryErrorToResponse(id, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorResponse(id, "TIMEOUT", err.Error(), true)
	}
	return errorResponse(id, "ACTION_FAILED", err.Error(), false)
}
