// Package host defines the host operations boundary that command actions act
// on: windows holding ordered resources, highlight and active flags, and
// labelled groups.
package host

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by every backend.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrNoWindow         = errors.New("no window")
)

// Resource is one tab-like entry of a window. Index is its position within
// the window.
type Resource struct {
	ID          int    `json:"id"`
	WindowID    int    `json:"windowId"`
	Index       int    `json:"index"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Active      bool   `json:"active"`
	Highlighted bool   `json:"highlighted"`
	GroupID     int    `json:"groupId,omitempty"`
}

// Window holds resources. At most one window is focused.
type Window struct {
	ID      int  `json:"id"`
	Focused bool `json:"focused"`
}

// Group labels a set of resources within one window.
type Group struct {
	ID       int    `json:"id"`
	WindowID int    `json:"windowId"`
	Title    string `json:"title"`
	Color    string `json:"color"`
}

// Filter selects resources. Zero fields match everything.
type Filter struct {
	FocusedWindow bool
	WindowID      int
	GroupID       int
	Active        *bool
	Highlighted   *bool
}

// GroupFilter selects groups. Zero fields match everything.
type GroupFilter struct {
	Title    string
	WindowID int
}

// CreateOptions describes a new resource. Empty fields get defaults.
type CreateOptions struct {
	URL   string
	Title string
}

// Update changes the flags of one resource. Nil fields are left unchanged.
// Activating a resource deactivates and unhighlights its siblings.
type Update struct {
	Active      *bool
	Highlighted *bool
}

// GroupUpdate changes a group's label. Empty fields are left unchanged.
type GroupUpdate struct {
	Title string
	Color string
}

// Operations is the host surface available to command actions. Calls may
// block on a remote store and may partially complete.
type Operations interface {
	Query(ctx context.Context, f Filter) ([]Resource, error)
	Create(ctx context.Context, opts CreateOptions) (Resource, error)
	Update(ctx context.Context, id int, u Update) (Resource, error)
	Group(ctx context.Context, ids []int) (int, error)
	UpdateGroup(ctx context.Context, id int, u GroupUpdate) (Group, error)
	Ungroup(ctx context.Context, ids []int) error
	QueryGroups(ctx context.Context, f GroupFilter) ([]Group, error)
	CreateWindow(ctx context.Context) (Window, error)
	Focused(ctx context.Context) ([]Resource, error)
}

// Strategy selects how highlight-style commands mark their target.
type Strategy string

const (
	// StrategyFlag sets the highlighted flag on resources directly.
	StrategyFlag Strategy = "flag"
	// StrategyGroup marks the target by moving it into a labelled group.
	StrategyGroup Strategy = "group"
)

// ParseStrategy maps a configuration value onto a Strategy. Empty means flag.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyFlag:
		return StrategyFlag, nil
	case StrategyGroup:
		return StrategyGroup, nil
	}
	return "", fmt.Errorf("host:types - unknown strategy %q", s)
}

// Bool returns a pointer to b, for Filter and Update fields.
func Bool(b bool) *bool {
	return &b
}
