package action

import (
	"fmt"
	"log/slog"
	"sort"
)

const queryLogPrefix = "action:query"

// QueryNode is the capability-free projection of a Node handed to front-ends.
// It holds no callables and shares no state with the tree.
type QueryNode struct {
	Name        string                `json:"name"`
	ShortName   string                `json:"shortName"`
	IsInvocable bool                  `json:"isInvocable"`
	Actions     map[string]*QueryNode `json:"actions"`
}

// Describe returns the query view of the subtree at key; an empty key
// describes the whole tree.
func (r *Registry) Describe(key string) (*QueryNode, error) {
	slog.Debug(fmt.Sprintf("%s - key=%q", queryLogPrefix, key))

	node := r.root
	if key != "" {
		n, ok := r.Resolve(key)
		if !ok {
			return nil, &RegistryError{Code: "NOT_FOUND", Message: fmt.Sprintf("Command not found: %s", key)}
		}
		node = n
	}
	return project(node, 0), nil
}

func project(n *Node, depth int) *QueryNode {
	q := &QueryNode{
		Name:        n.Name(),
		ShortName:   n.ShortName(),
		IsInvocable: n.Invocable(),
		Actions:     make(map[string]*QueryNode, len(n.children)),
	}
	if depth >= MaxDepth {
		return q
	}
	for seg, child := range n.children {
		q.Actions[seg] = project(child, depth+1)
	}
	return q
}

// InvocableKeys flattens the view into the sorted dotted keys of its
// invocable descendants, relative to this node.
func (q *QueryNode) InvocableKeys() []string {
	var out []string
	var walk func(n *QueryNode, prefix string)
	walk = func(n *QueryNode, prefix string) {
		for seg, child := range n.Actions {
			key := joinKey(prefix, seg)
			if child.IsInvocable {
				out = append(out, key)
			}
			walk(child, key)
		}
	}
	walk(q, "")
	sort.Strings(out)
	return out
}

// InvocableKeys returns the sorted dotted keys of every invocable node.
func (r *Registry) InvocableKeys() []string {
	return collectKeys(r.root, "")
}

func collectKeys(n *Node, prefix string) []string {
	var out []string
	for seg, child := range n.children {
		key := joinKey(prefix, seg)
		if child.Invocable() {
			out = append(out, key)
		}
		out = append(out, collectKeys(child, key)...)
	}
	sort.Strings(out)
	return out
}
