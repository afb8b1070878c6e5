package action

import "strings"

// Resolve walks the tree one dot-separated segment per level. An empty key, an
// empty segment or an unknown segment fails; there are no wildcards or
// relative forms.
func (r *Registry) Resolve(key string) (*Node, bool) {
	if key == "" {
		return nil, false
	}
	node := r.root
	for _, seg := range strings.Split(key, ".") {
		if seg == "" {
			return nil, false
		}
		child, ok := node.children[seg]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}
