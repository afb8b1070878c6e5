package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/morezero/command-registry/pkg/action"
)

// MaxRounds bounds Negotiate. Each round must fill at least one parameter,
// so a command can never need more rounds than it has parameters.
const MaxRounds = 32

// ErrNoAnswer is returned when a Prompter yields an empty value.
var ErrNoAnswer = errors.New("client:negotiate - no value supplied")

// Prompter asks the user for one missing argument.
type Prompter interface {
	Prompt(ctx context.Context, req action.ArgumentRequest) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, req action.ArgumentRequest) (string, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, req action.ArgumentRequest) (string, error) {
	return f(ctx, req)
}

// Negotiate invokes key, prompting for every requested argument and
// re-invoking with the accumulated arguments until the outcome is no longer
// pending. The caller's args are not modified.
func (c *Client) Negotiate(ctx context.Context, key string, args action.Args, p Prompter) (*action.Result, error) {
	acc := make(action.Args, len(args))
	for k, v := range args {
		acc[k] = v
	}

	for round := 0; round < MaxRounds; round++ {
		result, err := c.Invoke(ctx, key, acc)
		if err != nil {
			return nil, err
		}
		if result.Outcome != action.OutcomePending {
			return result, nil
		}
		for _, req := range result.Requests {
			value, err := p.Prompt(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("%s - prompt %s: %w", logPrefix, req.Param, err)
			}
			if value == "" {
				return nil, fmt.Errorf("%w for %s", ErrNoAnswer, req.Param)
			}
			acc[req.Param] = value
		}
	}
	return nil, fmt.Errorf("%s - %s still pending after %d rounds", logPrefix, key, MaxRounds)
}
