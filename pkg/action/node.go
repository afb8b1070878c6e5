package action

import "sort"

// Node is one entry of the command tree: a namespace, an invocable command, or
// both. Nodes are assembled with NewNode and never mutated afterwards.
type Node struct {
	name      string
	shortName string
	children  map[string]*Node
	params    []Parameter
	fn        Func
}

// NodeOption configures a Node under construction.
type NodeOption func(*Node)

// NewNode builds a node with the given display name.
func NewNode(name string, opts ...NodeOption) *Node {
	n := &Node{name: name, children: make(map[string]*Node)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// WithShortName sets the short display form.
func WithShortName(shortName string) NodeOption {
	return func(n *Node) {
		n.shortName = shortName
	}
}

// WithAction makes the node invocable. Parameter order defines the order of
// argument requests.
func WithAction(fn Func, params ...Parameter) NodeOption {
	return func(n *Node) {
		n.fn = fn
		n.params = append([]Parameter(nil), params...)
	}
}

// WithChild attaches child under segment. A later child with the same segment
// replaces the earlier one.
func WithChild(segment string, child *Node) NodeOption {
	return func(n *Node) {
		n.children[segment] = child
	}
}

// Name returns the long display name.
func (n *Node) Name() string {
	return n.name
}

// ShortName returns the short display name, falling back to Name.
func (n *Node) ShortName() string {
	if n.shortName == "" {
		return n.name
	}
	return n.shortName
}

// Invocable reports whether the node carries an action.
func (n *Node) Invocable() bool {
	return n.fn != nil
}

// Child returns the child registered under segment.
func (n *Node) Child(segment string) (*Node, bool) {
	c, ok := n.children[segment]
	return c, ok
}

// Segments returns the child segment names in sorted order.
func (n *Node) Segments() []string {
	out := make([]string, 0, len(n.children))
	for seg := range n.children {
		out = append(out, seg)
	}
	sort.Strings(out)
	return out
}

// Parameters returns a copy of the declared parameters.
func (n *Node) Parameters() []Parameter {
	return append([]Parameter(nil), n.params...)
}
