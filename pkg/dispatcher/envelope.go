// Package dispatcher routes incoming COMMS messages to registry methods.
package dispatcher

import (
	"encoding/json"

	"github.com/morezero/command-registry/pkg/action"
)

// Method names understood by the dispatcher.
const (
	MethodInvoke = "invoke"
	MethodQuery  = "query"
	MethodKeys   = "keys"
	MethodHealth = "health"
)

// RegistryRequest is the JSON envelope for incoming COMMS registry requests.
type RegistryRequest struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params,omitempty"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// RegistryResponse is the JSON envelope for COMMS registry responses.
type RegistryResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	UserID        string `json:"userId,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}

// InvokeParams are the params of an invoke request. Args accumulate across
// rounds on the caller's side.
type InvokeParams struct {
	Key  string      `json:"key"`
	Args action.Args `json:"args,omitempty"`
}

// QueryParams are the params of a query request. An empty Key describes the
// whole tree; Ver is a semver constraint on the protocol version.
type QueryParams struct {
	Key string `json:"key,omitempty"`
	Ver string `json:"ver,omitempty"`
}

// KeysResult lists the invocable command keys.
type KeysResult struct {
	Keys []string `json:"keys"`
}

// HealthResult reports registry and host health.
type HealthResult struct {
	Status          string            `json:"status"`
	ProtocolVersion string            `json:"protocolVersion"`
	Checks          map[string]string `json:"checks"`
	Timestamp       string            `json:"timestamp"`
}
