// Package commands assembles the concrete command tree over host operations.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/host"
	"github.com/morezero/command-registry/pkg/shift"
)

const logPrefix = "commands:commands"

// Defaults for the group strategy label.
const (
	DefaultGroupTitle = "doExt"
	DefaultGroupColor = "blue"
)

// Options selects how highlight-style commands behave. The strategy is fixed
// for the lifetime of the tree.
type Options struct {
	Strategy   host.Strategy
	GroupTitle string
	GroupColor string
}

type commandSet struct {
	ops  host.Operations
	opts Options
}

// Build returns the root of the command tree acting on ops.
func Build(ops host.Operations, opts Options) *action.Node {
	if opts.Strategy == "" {
		opts.Strategy = host.StrategyFlag
	}
	if opts.GroupTitle == "" {
		opts.GroupTitle = DefaultGroupTitle
	}
	if opts.GroupColor == "" {
		opts.GroupColor = DefaultGroupColor
	}
	c := &commandSet{ops: ops, opts: opts}

	shiftParam := action.Parameter{Name: "shift", Describe: c.describeShift}
	resourceParam := action.Parameter{Name: "resource", Describe: c.describeResource}

	return action.NewNode("Commands",
		action.WithChild("tabs", action.NewNode("Tabs",
			action.WithChild("create", action.NewNode("New tab",
				action.WithShortName("New"),
				action.WithAction(c.createResource),
			)),
			action.WithChild("highlight", action.NewNode("Highlight",
				action.WithChild("shift", action.NewNode("Highlight relative tab",
					action.WithShortName("Shift"),
					action.WithAction(c.highlightShift, shiftParam),
				)),
			)),
			action.WithChild("activate", action.NewNode("Activate",
				action.WithChild("shift", action.NewNode("Activate relative tab",
					action.WithShortName("Shift"),
					action.WithAction(c.activateShift, shiftParam),
				)),
				action.WithChild("highlighted", action.NewNode("Activate highlighted tab",
					action.WithShortName("Highlighted"),
					action.WithAction(c.activateHighlighted),
				)),
				action.WithChild("resource", action.NewNode("Activate tab",
					action.WithShortName("Tab"),
					action.WithAction(c.activateResource, resourceParam),
				)),
			)),
		)),
		action.WithChild("windows", action.NewNode("Windows",
			action.WithChild("create", action.NewNode("New window",
				action.WithShortName("New"),
				action.WithAction(c.createWindow),
			)),
		)),
	)
}

type shiftArgs struct {
	Shift string `mapstructure:"shift"`
}

type resourceArgs struct {
	Resource int `mapstructure:"resource"`
}

// decodeArgs maps string arguments onto a typed struct, converting numeric
// fields from their string form.
func decodeArgs(args action.Args, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%s - build decoder: %w", logPrefix, err)
	}
	if err := dec.Decode(map[string]string(args)); err != nil {
		return fmt.Errorf("%s - decode arguments: %w", logPrefix, err)
	}
	return nil
}

func (c *commandSet) describeShift(ctx context.Context) (action.ArgumentRequestInfo, error) {
	resources, err := c.ops.Focused(ctx)
	if err != nil {
		return action.ArgumentRequestInfo{}, err
	}
	bound := 0
	if len(resources) > 0 {
		bound = len(resources) - 1
	}
	return action.ArgumentRequestInfo{
		Type:     action.TypeNumber,
		Freeform: true,
		Range:    &action.Range{Min: -bound, Max: bound},
		Presets: []action.Preset{
			{ID: "1", Name: "+1"},
			{ID: "-1", Name: "-1"},
		},
	}, nil
}

func (c *commandSet) describeResource(ctx context.Context) (action.ArgumentRequestInfo, error) {
	resources, err := c.ops.Focused(ctx)
	if err != nil {
		return action.ArgumentRequestInfo{}, err
	}
	presets := make([]action.Preset, 0, len(resources))
	for _, r := range resources {
		presets = append(presets, action.Preset{ID: strconv.Itoa(r.ID), Name: r.Title})
	}
	return action.ArgumentRequestInfo{Type: action.TypeString, Presets: presets}, nil
}

// shiftTarget resolves a shift expression against the focused window,
// relative to its active resource.
func (c *commandSet) shiftTarget(ctx context.Context, args action.Args) (host.Resource, error) {
	var in shiftArgs
	if err := decodeArgs(args, &in); err != nil {
		return host.Resource{}, err
	}

	resources, err := c.ops.Focused(ctx)
	if err != nil {
		return host.Resource{}, err
	}
	if len(resources) == 0 {
		return host.Resource{}, fmt.Errorf("%s - focused window is empty: %w", logPrefix, host.ErrResourceNotFound)
	}

	delta, err := shift.Evaluate(in.Shift, len(resources))
	if err != nil {
		return host.Resource{}, err
	}

	current := 0
	for i, r := range resources {
		if r.Active {
			current = i
			break
		}
	}
	return resources[shift.Wrap(current, delta, len(resources))], nil
}

func (c *commandSet) createResource(ctx context.Context, _ action.Args) error {
	r, err := c.ops.Create(ctx, host.CreateOptions{})
	if err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("%s - Created resource %d in window %d", logPrefix, r.ID, r.WindowID))
	return nil
}

func (c *commandSet) createWindow(ctx context.Context, _ action.Args) error {
	w, err := c.ops.CreateWindow(ctx)
	if err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("%s - Created window %d", logPrefix, w.ID))
	return nil
}

func (c *commandSet) activateShift(ctx context.Context, args action.Args) error {
	target, err := c.shiftTarget(ctx, args)
	if err != nil {
		return err
	}
	_, err = c.ops.Update(ctx, target.ID, host.Update{Active: host.Bool(true)})
	return err
}

func (c *commandSet) activateResource(ctx context.Context, args action.Args) error {
	var in resourceArgs
	if err := decodeArgs(args, &in); err != nil {
		return err
	}
	_, err := c.ops.Update(ctx, in.Resource, host.Update{Active: host.Bool(true)})
	return err
}

func (c *commandSet) highlightShift(ctx context.Context, args action.Args) error {
	target, err := c.shiftTarget(ctx, args)
	if err != nil {
		return err
	}
	if c.opts.Strategy == host.StrategyGroup {
		return c.markByGroup(ctx, target)
	}
	return c.markByFlag(ctx, target)
}

// markByFlag highlights target and clears the previous non-active highlight.
func (c *commandSet) markByFlag(ctx context.Context, target host.Resource) error {
	previous, err := c.ops.Query(ctx, host.Filter{
		FocusedWindow: true,
		Highlighted:   host.Bool(true),
		Active:        host.Bool(false),
	})
	if err != nil {
		return err
	}
	if _, err := c.ops.Update(ctx, target.ID, host.Update{Highlighted: host.Bool(true)}); err != nil {
		return err
	}
	if len(previous) > 0 && previous[0].ID != target.ID {
		if _, err := c.ops.Update(ctx, previous[0].ID, host.Update{Highlighted: host.Bool(false)}); err != nil {
			return err
		}
	}
	return nil
}

// markByGroup dissolves any existing label group and regroups only target.
func (c *commandSet) markByGroup(ctx context.Context, target host.Resource) error {
	groups, err := c.ops.QueryGroups(ctx, host.GroupFilter{Title: c.opts.GroupTitle})
	if err != nil {
		return err
	}
	for _, g := range groups {
		members, err := c.ops.Query(ctx, host.Filter{GroupID: g.ID})
		if err != nil {
			return err
		}
		ids := make([]int, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		if len(ids) == 0 {
			continue
		}
		if err := c.ops.Ungroup(ctx, ids); err != nil {
			return err
		}
	}

	groupID, err := c.ops.Group(ctx, []int{target.ID})
	if err != nil {
		return err
	}
	_, err = c.ops.UpdateGroup(ctx, groupID, host.GroupUpdate{Title: c.opts.GroupTitle, Color: c.opts.GroupColor})
	return err
}

func (c *commandSet) activateHighlighted(ctx context.Context, _ action.Args) error {
	if c.opts.Strategy == host.StrategyGroup {
		groups, err := c.ops.QueryGroups(ctx, host.GroupFilter{Title: c.opts.GroupTitle})
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return fmt.Errorf("%s - no %q group: %w", logPrefix, c.opts.GroupTitle, host.ErrGroupNotFound)
		}
		members, err := c.ops.Query(ctx, host.Filter{GroupID: groups[0].ID})
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return fmt.Errorf("%s - %q group is empty: %w", logPrefix, c.opts.GroupTitle, host.ErrResourceNotFound)
		}
		if _, err := c.ops.Update(ctx, members[0].ID, host.Update{Active: host.Bool(true)}); err != nil {
			return err
		}
		return c.ops.Ungroup(ctx, []int{members[0].ID})
	}

	highlighted, err := c.ops.Query(ctx, host.Filter{
		FocusedWindow: true,
		Highlighted:   host.Bool(true),
		Active:        host.Bool(false),
	})
	if err != nil {
		return err
	}
	if len(highlighted) == 0 {
		return fmt.Errorf("%s - nothing highlighted: %w", logPrefix, host.ErrResourceNotFound)
	}
	_, err = c.ops.Update(ctx, highlighted[0].ID, host.Update{Active: host.Bool(true)})
	return err
}
