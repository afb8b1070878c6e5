// Package action implements the command tree: dotted-key resolution, argument
// negotiation, invocation and the capability-free query view.
package action

import "context"

// Args maps parameter names to string-encoded values. Type, range and preset
// hints are advisory for the caller; the registry never validates values.
type Args map[string]string

// Func is the effect of an invocable node. A returned error is a host-operation
// failure and is propagated to the invoker unchanged.
type Func func(ctx context.Context, args Args) error

// DescribeFunc computes how a missing parameter should be presented to the
// caller. It may read live host state and is re-evaluated every round.
type DescribeFunc func(ctx context.Context) (ArgumentRequestInfo, error)

// Parameter is one named input of an invocable node.
type Parameter struct {
	Name     string
	Describe DescribeFunc
}

// Primitive type hints for ArgumentRequestInfo.Type.
const (
	TypeString = "string"
	TypeNumber = "number"
)

// ArgumentRequestInfo is a hint set describing a missing parameter. Any
// combination of fields may be present.
type ArgumentRequestInfo struct {
	Type     string   `json:"type,omitempty"`
	Freeform bool     `json:"freeform,omitempty"`
	Range    *Range   `json:"range,omitempty"`
	Presets  []Preset `json:"presets,omitempty"`
}

// Range holds inclusive numeric bounds.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Preset is one selectable concrete value.
type Preset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArgumentRequest asks the caller for one still-missing parameter.
type ArgumentRequest struct {
	Param string              `json:"param"`
	Info  ArgumentRequestInfo `json:"info"`
}

// Outcome is the terminal state of one invocation attempt.
type Outcome string

const (
	// OutcomeExecuted means the action ran to completion exactly once.
	OutcomeExecuted Outcome = "executed"
	// OutcomePending means parameters are missing; the action did not run.
	OutcomePending Outcome = "pending"
	// OutcomeNotFound means the key did not resolve to a node.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeNotInvocable means the key resolved to a namespace without an action.
	OutcomeNotInvocable Outcome = "not_invocable"
)

// Result is the response of one invocation round. Requests is non-nil and
// empty unless Outcome is OutcomePending.
type Result struct {
	Outcome  Outcome           `json:"outcome"`
	Key      string            `json:"key"`
	Requests []ArgumentRequest `json:"argumentRequests"`
}

// Executed reports whether the round ran the action.
func (r *Result) Executed() bool {
	return r.Outcome == OutcomeExecuted
}

// RegistryError is a structured error from the registry.
type RegistryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *RegistryError) Error() string {
	return e.Code + ": " + e.Message
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(code, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message}
}
