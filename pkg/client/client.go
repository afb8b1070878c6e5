// Package client calls the command registry over COMMS request/reply.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/commsutil"
	"github.com/morezero/command-registry/pkg/dispatcher"
)

const logPrefix = "client:client"

// DefaultTimeout applies when the caller's context carries no deadline.
const DefaultTimeout = 10 * time.Second

// Error is a protocol-level failure reported by the registry.
type Error struct {
	Code      string
	Message   string
	Details   interface{}
	Retryable bool
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Client sends protocol requests to one registry subject.
type Client struct {
	nc      *comms.Conn
	subject string
	timeout time.Duration
}

// Options configures a Client. Zero values use defaults.
type Options struct {
	Subject string
	Timeout time.Duration
}

// New creates a Client on an open COMMS connection.
func New(nc *comms.Conn, opts Options) *Client {
	c := &Client{nc: nc, subject: opts.Subject, timeout: opts.Timeout}
	if c.subject == "" {
		c.subject = commsutil.SubjectRegistry
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c
}

// Invoke runs one invocation round.
func (c *Client) Invoke(ctx context.Context, key string, args action.Args) (*action.Result, error) {
	var out action.Result
	if err := c.call(ctx, dispatcher.MethodInvoke, dispatcher.InvokeParams{Key: key, Args: args}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query describes the subtree at key; an empty key describes the whole
// tree. ver is an optional protocol version constraint.
func (c *Client) Query(ctx context.Context, key, ver string) (*action.QueryNode, error) {
	var out action.QueryNode
	if err := c.call(ctx, dispatcher.MethodQuery, dispatcher.QueryParams{Key: key, Ver: ver}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Keys lists the invocable command keys.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	var out dispatcher.KeysResult
	if err := c.call(ctx, dispatcher.MethodKeys, nil, &out); err != nil {
		return nil, err
	}
	return out.Keys, nil
}

// Health fetches the registry health report.
func (c *Client) Health(ctx context.Context) (*dispatcher.HealthResult, error) {
	var out dispatcher.HealthResult
	if err := c.call(ctx, dispatcher.MethodHealth, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// envelope mirrors dispatcher.RegistryResponse with a raw result.
type envelope struct {
	ID     string                  `json:"id"`
	Ok     bool                    `json:"ok"`
	Result json.RawMessage         `json:"result"`
	Error  *dispatcher.ErrorDetail `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := uuid.NewString()
	req := dispatcher.RegistryRequest{
		ID:     id,
		Method: method,
		Ctx:    &dispatcher.InvocationContext{RequestID: id},
	}
	if deadline, ok := ctx.Deadline(); ok {
		req.Ctx.TimeoutMs = int(time.Until(deadline).Milliseconds())
	}
	if params != nil {
		raw, err := commsutil.EncodePayload(params)
		if err != nil {
			return fmt.Errorf("%s - encode %s params: %w", logPrefix, method, err)
		}
		req.Params = raw
	}

	data, err := commsutil.EncodePayload(req)
	if err != nil {
		return fmt.Errorf("%s - encode %s request: %w", logPrefix, method, err)
	}

	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return fmt.Errorf("%s - %s request to %s: %w", logPrefix, method, c.subject, err)
	}

	var resp envelope
	if err := commsutil.DecodePayload(msg.Data, &resp); err != nil {
		return fmt.Errorf("%s - decode %s response: %w", logPrefix, method, err)
	}
	if resp.ID != id {
		return fmt.Errorf("%s - response id %q does not match request %q", logPrefix, resp.ID, id)
	}
	if !resp.Ok {
		if resp.Error == nil {
			return &Error{Code: "UNKNOWN", Message: "registry reported failure without detail"}
		}
		return &Error{
			Code:      resp.Error.Code,
			Message:   resp.Error.Message,
			Details:   resp.Error.Details,
			Retryable: resp.Error.Retryable,
		}
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%s - decode %s result: %w", logPrefix, method, err)
	}
	return nil
}

// IsCode reports whether err is a registry Error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
