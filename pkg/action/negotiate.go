package action

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Unsatisfied returns the names of parameters whose argument is absent or
// empty, in declared order.
func Unsatisfied(node *Node, args Args) []string {
	var out []string
	for _, p := range node.params {
		if args[p.Name] == "" {
			out = append(out, p.Name)
		}
	}
	return out
}

// Negotiate describes every unsatisfied parameter of node. Describers run
// concurrently; the requests come back in declared parameter order. An empty
// result means nothing is missing.
func (r *Registry) Negotiate(ctx context.Context, node *Node, args Args) ([]ArgumentRequest, error) {
	var missing []Parameter
	for _, p := range node.params {
		if args[p.Name] == "" {
			missing = append(missing, p)
		}
	}
	requests := make([]ArgumentRequest, len(missing))
	if len(missing) == 0 {
		return requests, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range missing {
		g.Go(func() error {
			info, err := p.Describe(gctx)
			if err != nil {
				return fmt.Errorf("describe parameter %q: %w", p.Name, err)
			}
			requests[i] = ArgumentRequest{Param: p.Name, Info: info}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return requests, nil
}
