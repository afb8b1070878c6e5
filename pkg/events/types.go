// Package events defines event types and publisher interfaces for command invocation events.
package events

// InvokedEvent is emitted after a command's action ran, successfully or not.
// Only parameter names are carried; argument values stay with the caller.
type InvokedEvent struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	Params    []string `json:"params"`
	Succeeded bool     `json:"succeeded"`
	Error     string   `json:"error,omitempty"`
	Timestamp string   `json:"timestamp"`
}
