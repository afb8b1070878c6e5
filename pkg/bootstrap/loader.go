package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/morezero/command-registry/pkg/host"
)

const logPrefix = "bootstrap:loader"

// LoadBootstrapConfig loads bootstrap config from file paths or environment.
// Paths are tried in order: explicit paths, REGISTRY_BOOTSTRAP_FILE, then
// config/bootstrap.yaml and bootstrap.yaml. The first readable file is merged
// over the defaults; a file that fails to parse is an error.
func LoadBootstrapConfig(paths ...string) (*BootstrapConfig, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("REGISTRY_BOOTSTRAP_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/bootstrap.yaml", "bootstrap.yaml")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var cfg BootstrapConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - failed to parse bootstrap file %s: %w", logPrefix, p, err)
		}

		slog.Info(fmt.Sprintf("%s - Loaded bootstrap config from %s", logPrefix, p))
		return MergeBootstrapConfigs(GetDefaultBootstrapConfig(), &cfg), nil
	}

	slog.Info(fmt.Sprintf("%s - Using default bootstrap config", logPrefix))
	return GetDefaultBootstrapConfig(), nil
}

// GetDefaultBootstrapConfig returns the built-in configuration.
func GetDefaultBootstrapConfig() *BootstrapConfig {
	return &BootstrapConfig{
		Name:            "command-registry",
		ProtocolVersion: "1.0.0",
		Description:     "Default command registry configuration",
		Strategy:        string(host.StrategyFlag),
		GroupTitle:      "doExt",
		GroupColor:      "blue",
		Aliases: map[string]string{
			"next":    "tabs.activate.shift",
			"new-tab": "tabs.create",
			"new-win": "windows.create",
			"jump":    "tabs.activate.highlighted",
			"goto":    "tabs.activate.resource",
			"mark":    "tabs.highlight.shift",
		},
	}
}

// MergeBootstrapConfigs overlays the non-empty fields of override onto base.
// Aliases are merged key by key.
func MergeBootstrapConfigs(base, override *BootstrapConfig) *BootstrapConfig {
	merged := *base
	merged.Aliases = make(map[string]string, len(base.Aliases)+len(override.Aliases))
	for alias, target := range base.Aliases {
		merged.Aliases[alias] = target
	}
	for alias, target := range override.Aliases {
		merged.Aliases[alias] = target
	}

	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.ProtocolVersion != "" {
		merged.ProtocolVersion = override.ProtocolVersion
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Strategy != "" {
		merged.Strategy = override.Strategy
	}
	if override.GroupTitle != "" {
		merged.GroupTitle = override.GroupTitle
	}
	if override.GroupColor != "" {
		merged.GroupColor = override.GroupColor
	}
	if override.EventSubjects.Global != "" {
		merged.EventSubjects.Global = override.EventSubjects.Global
	}
	return &merged
}

// CreateResolvedBootstrap validates cfg and builds a ResolvedBootstrap.
func CreateResolvedBootstrap(cfg *BootstrapConfig) (*ResolvedBootstrap, error) {
	strategy, err := host.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if _, err := mmsemver.StrictNewVersion(cfg.ProtocolVersion); err != nil {
		return nil, fmt.Errorf("%s - invalid protocolVersion %q: %w", logPrefix, cfg.ProtocolVersion, err)
	}

	aliases := make(map[string]string, len(cfg.Aliases))
	for alias, target := range cfg.Aliases {
		if alias == "" || target == "" {
			return nil, fmt.Errorf("%s - alias %q -> %q must not be empty", logPrefix, alias, target)
		}
		if strings.HasPrefix(target, ".") || strings.HasSuffix(target, ".") {
			return nil, fmt.Errorf("%s - alias %q targets malformed key %q", logPrefix, alias, target)
		}
		aliases[alias] = target
	}

	return &ResolvedBootstrap{
		name:            cfg.Name,
		protocolVersion: cfg.ProtocolVersion,
		strategy:        strategy,
		groupTitle:      cfg.GroupTitle,
		groupColor:      cfg.GroupColor,
		aliases:         aliases,
		globalSubject:   cfg.EventSubjects.Global,
	}, nil
}
