package action

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/morezero/command-registry/pkg/events"
)

const logPrefix = "action:registry"

// MaxDepth bounds the tree depth accepted at construction and walked by Describe.
const MaxDepth = 64

// Registry serves resolution, negotiation, invocation and query over one
// immutable tree.
type Registry struct {
	root      *Node
	publisher events.EventPublisher
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Root      *Node
	Publisher events.EventPublisher
}

// NewRegistry validates the tree and returns a Registry over it.
func NewRegistry(params NewRegistryParams) (*Registry, error) {
	if params.Root == nil {
		return nil, &RegistryError{Code: "INVALID_TREE", Message: "root node is required"}
	}
	if err := validateTree(params.Root); err != nil {
		return nil, err
	}

	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	slog.Info(fmt.Sprintf("%s - Registry ready with %d invocable commands", logPrefix, len(collectKeys(params.Root, ""))))
	return &Registry{root: params.Root, publisher: pub}, nil
}

// Root returns the root node.
func (r *Registry) Root() *Node {
	return r.root
}

// validateTree rejects trees that break exclusive ownership, exceed MaxDepth,
// or carry keys and parameter names that cannot be addressed.
func validateTree(root *Node) error {
	seen := make(map[*Node]string)
	var walk func(n *Node, path string, depth int) error
	walk = func(n *Node, path string, depth int) error {
		if depth > MaxDepth {
			return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("tree deeper than %d at %q", MaxDepth, path)}
		}
		if prev, ok := seen[n]; ok {
			return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("node at %q is also attached at %q", path, prev)}
		}
		seen[n] = path

		names := make(map[string]bool, len(n.params))
		for _, p := range n.params {
			if p.Name == "" {
				return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("empty parameter name at %q", path)}
			}
			if names[p.Name] {
				return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("duplicate parameter %q at %q", p.Name, path)}
			}
			if p.Describe == nil {
				return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("parameter %q at %q has no describer", p.Name, path)}
			}
			names[p.Name] = true
		}

		for seg, child := range n.children {
			if seg == "" || strings.Contains(seg, ".") {
				return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("invalid segment %q under %q", seg, path)}
			}
			if child == nil {
				return &RegistryError{Code: "INVALID_TREE", Message: fmt.Sprintf("nil child %q under %q", seg, path)}
			}
			if err := walk(child, joinKey(path, seg), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, "", 0)
}

func joinKey(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}
