// Package hosttest holds a behavioural contract shared by host backends.
package hosttest

import (
	"context"
	"errors"
	"testing"

	"github.com/morezero/command-registry/pkg/host"
)

// RunOperationsContract exercises ops from an empty state. Every backend must
// pass it unchanged.
func RunOperationsContract(t *testing.T, ops host.Operations) {
	t.Helper()
	ctx := context.Background()

	focused, err := ops.Focused(ctx)
	if err != nil {
		t.Fatalf("hosttest:contract - Focused on empty state: %v", err)
	}
	if len(focused) != 0 {
		t.Fatalf("hosttest:contract - expected no resources, got %d", len(focused))
	}

	var ids []int
	for i := 0; i < 3; i++ {
		r, err := ops.Create(ctx, host.CreateOptions{Title: "r"})
		if err != nil {
			t.Fatalf("hosttest:contract - Create: %v", err)
		}
		if !r.Active || r.Index != i {
			t.Errorf("hosttest:contract - created resource = %+v, want active at index %d", r, i)
		}
		ids = append(ids, r.ID)
	}

	if _, err := ops.Update(ctx, ids[0], host.Update{Active: host.Bool(true)}); err != nil {
		t.Fatalf("hosttest:contract - Update active: %v", err)
	}
	if _, err := ops.Update(ctx, ids[1], host.Update{Highlighted: host.Bool(true)}); err != nil {
		t.Fatalf("hosttest:contract - Update highlighted: %v", err)
	}

	highlighted, err := ops.Query(ctx, host.Filter{FocusedWindow: true, Highlighted: host.Bool(true), Active: host.Bool(false)})
	if err != nil {
		t.Fatalf("hosttest:contract - Query: %v", err)
	}
	if len(highlighted) != 1 || highlighted[0].ID != ids[1] {
		t.Errorf("hosttest:contract - highlighted = %+v, want only %d", highlighted, ids[1])
	}

	active, err := ops.Query(ctx, host.Filter{FocusedWindow: true, Active: host.Bool(true)})
	if err != nil {
		t.Fatalf("hosttest:contract - Query active: %v", err)
	}
	if len(active) != 1 || active[0].ID != ids[0] {
		t.Errorf("hosttest:contract - active = %+v, want only %d", active, ids[0])
	}

	if _, err := ops.Update(ctx, 1<<30, host.Update{Active: host.Bool(true)}); !errors.Is(err, host.ErrResourceNotFound) {
		t.Errorf("hosttest:contract - Update unknown: got %v, want ErrResourceNotFound", err)
	}

	gid, err := ops.Group(ctx, []int{ids[2]})
	if err != nil {
		t.Fatalf("hosttest:contract - Group: %v", err)
	}
	if _, err := ops.UpdateGroup(ctx, gid, host.GroupUpdate{Title: "label", Color: "blue"}); err != nil {
		t.Fatalf("hosttest:contract - UpdateGroup: %v", err)
	}
	groups, err := ops.QueryGroups(ctx, host.GroupFilter{Title: "label"})
	if err != nil {
		t.Fatalf("hosttest:contract - QueryGroups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != gid || groups[0].Color != "blue" {
		t.Errorf("hosttest:contract - groups = %+v", groups)
	}
	members, err := ops.Query(ctx, host.Filter{GroupID: gid})
	if err != nil {
		t.Fatalf("hosttest:contract - Query group: %v", err)
	}
	if len(members) != 1 || members[0].ID != ids[2] {
		t.Errorf("hosttest:contract - members = %+v", members)
	}
	if err := ops.Ungroup(ctx, []int{ids[2]}); err != nil {
		t.Fatalf("hosttest:contract - Ungroup: %v", err)
	}
	groups, err = ops.QueryGroups(ctx, host.GroupFilter{})
	if err != nil {
		t.Fatalf("hosttest:contract - QueryGroups: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("hosttest:contract - expected no groups after ungroup, got %+v", groups)
	}

	w, err := ops.CreateWindow(ctx)
	if err != nil {
		t.Fatalf("hosttest:contract - CreateWindow: %v", err)
	}
	focused, err = ops.Focused(ctx)
	if err != nil {
		t.Fatalf("hosttest:contract - Focused: %v", err)
	}
	if len(focused) != 1 || focused[0].WindowID != w.ID || !focused[0].Active {
		t.Errorf("hosttest:contract - new window resources = %+v", focused)
	}
}
