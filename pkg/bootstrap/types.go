// Package bootstrap loads the registry's startup configuration: protocol
// version, highlight strategy and key aliases.
package bootstrap

import "github.com/morezero/command-registry/pkg/host"

// BootstrapConfig is the root bootstrap configuration. Files may be YAML or
// JSON.
type BootstrapConfig struct {
	Name            string            `yaml:"name" json:"name"`
	ProtocolVersion string            `yaml:"protocolVersion" json:"protocolVersion"`
	Description     string            `yaml:"description,omitempty" json:"description,omitempty"`
	Strategy        string            `yaml:"strategy" json:"strategy"`
	GroupTitle      string            `yaml:"groupTitle" json:"groupTitle"`
	GroupColor      string            `yaml:"groupColor" json:"groupColor"`
	Aliases         map[string]string `yaml:"aliases" json:"aliases"`
	EventSubjects   EventSubjects     `yaml:"eventSubjects" json:"eventSubjects"`
}

// EventSubjects overrides invoked event subjects.
type EventSubjects struct {
	Global string `yaml:"global" json:"global"`
}

// ResolvedBootstrap is a validated, read-only view of a BootstrapConfig.
type ResolvedBootstrap struct {
	name            string
	protocolVersion string
	strategy        host.Strategy
	groupTitle      string
	groupColor      string
	aliases         map[string]string
	globalSubject   string
}

// ResolveAlias maps an alias onto its command key. Unknown names are returned
// unchanged. Aliases do not chain.
func (rb *ResolvedBootstrap) ResolveAlias(key string) string {
	if target, ok := rb.aliases[key]; ok {
		return target
	}
	return key
}

// Aliases returns a copy of the alias table.
func (rb *ResolvedBootstrap) Aliases() map[string]string {
	out := make(map[string]string, len(rb.aliases))
	for k, v := range rb.aliases {
		out[k] = v
	}
	return out
}

// Name returns the bootstrap config name.
func (rb *ResolvedBootstrap) Name() string {
	return rb.name
}

// ProtocolVersion returns the semantic version advertised to clients.
func (rb *ResolvedBootstrap) ProtocolVersion() string {
	return rb.protocolVersion
}

// Strategy returns the highlight strategy.
func (rb *ResolvedBootstrap) Strategy() host.Strategy {
	return rb.strategy
}

// GroupTitle returns the label used by the group strategy.
func (rb *ResolvedBootstrap) GroupTitle() string {
	return rb.groupTitle
}

// GroupColor returns the colour used by the group strategy.
func (rb *ResolvedBootstrap) GroupColor() string {
	return rb.groupColor
}

// GlobalEventSubject returns the global invoked subject override, or "".
func (rb *ResolvedBootstrap) GlobalEventSubject() string {
	return rb.globalSubject
}
