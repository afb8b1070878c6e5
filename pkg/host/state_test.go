package host

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, n int) (*State, []Resource) {
	t.Helper()
	s := NewState()
	var out []Resource
	for i := 0; i < n; i++ {
		out = append(out, s.Create(CreateOptions{Title: string(rune('a' + i))}))
	}
	return s, out
}

func activeCount(rs []Resource) int {
	n := 0
	for _, r := range rs {
		if r.Active {
			n++
		}
	}
	return n
}

func TestState_CreateOpensWindowAndActivates(t *testing.T) {
	s, created := seeded(t, 3)

	focused := s.Focused()
	require.Len(t, focused, 3)
	assert.Len(t, s.Windows, 1)
	for i, r := range focused {
		assert.Equal(t, i, r.Index, "host:state_test - index of %d", r.ID)
		assert.Equal(t, created[i].ID, r.ID)
	}
	assert.Equal(t, 1, activeCount(focused))
	assert.True(t, focused[2].Active)
	assert.True(t, focused[2].Highlighted)
	assert.Equal(t, DefaultURL, focused[0].URL)
}

func TestState_UpdateActiveClearsSiblings(t *testing.T) {
	s, created := seeded(t, 4)

	_, err := s.Update(created[1].ID, Update{Highlighted: Bool(true)})
	require.NoError(t, err)

	r, err := s.Update(created[0].ID, Update{Active: Bool(true)})
	require.NoError(t, err)
	assert.True(t, r.Active)
	assert.True(t, r.Highlighted)

	focused := s.Focused()
	assert.Equal(t, 1, activeCount(focused))
	for _, r := range focused[1:] {
		assert.False(t, r.Highlighted, "host:state_test - %d still highlighted", r.ID)
	}
}

func TestState_ActiveStaysHighlighted(t *testing.T) {
	s, created := seeded(t, 2)

	r, err := s.Update(created[1].ID, Update{Highlighted: Bool(false)})
	require.NoError(t, err)
	assert.True(t, r.Active)
	assert.True(t, r.Highlighted)
}

func TestState_UpdateUnknown(t *testing.T) {
	s, _ := seeded(t, 1)
	_, err := s.Update(999, Update{Active: Bool(true)})
	assert.True(t, errors.Is(err, ErrResourceNotFound))
}

func TestState_QueryFilters(t *testing.T) {
	s, created := seeded(t, 3)
	_, err := s.Update(created[0].ID, Update{Highlighted: Bool(true)})
	require.NoError(t, err)

	got := s.Query(Filter{FocusedWindow: true, Highlighted: Bool(true), Active: Bool(false)})
	require.Len(t, got, 1)
	assert.Equal(t, created[0].ID, got[0].ID)

	got = s.Query(Filter{Active: Bool(true)})
	require.Len(t, got, 1)
	assert.Equal(t, created[2].ID, got[0].ID)
}

func TestState_CreateWindowFocusesNewWindow(t *testing.T) {
	s, _ := seeded(t, 2)

	w := s.CreateWindow()
	assert.True(t, w.Focused)

	focused := s.Focused()
	require.Len(t, focused, 1)
	assert.Equal(t, w.ID, focused[0].WindowID)
	assert.True(t, focused[0].Active)

	r := s.Create(CreateOptions{})
	assert.Equal(t, w.ID, r.WindowID)
	assert.Equal(t, 1, r.Index)

	// The first window keeps its own active resource.
	first := s.Query(Filter{WindowID: s.Windows[0].ID, Active: Bool(true)})
	assert.Len(t, first, 1)
}

func TestState_GroupLifecycle(t *testing.T) {
	s, created := seeded(t, 3)

	gid, err := s.Group([]int{created[1].ID})
	require.NoError(t, err)

	g, err := s.UpdateGroup(gid, GroupUpdate{Title: "doExt", Color: "blue"})
	require.NoError(t, err)
	assert.Equal(t, "doExt", g.Title)
	assert.Equal(t, "blue", g.Color)

	groups := s.QueryGroups(GroupFilter{Title: "doExt"})
	require.Len(t, groups, 1)
	members := s.Query(Filter{GroupID: gid})
	require.Len(t, members, 1)
	assert.Equal(t, created[1].ID, members[0].ID)

	// Regrouping the only member elsewhere drops the emptied group.
	gid2, err := s.Group([]int{created[1].ID})
	require.NoError(t, err)
	assert.Empty(t, s.QueryGroups(GroupFilter{Title: "doExt"}))

	require.NoError(t, s.Ungroup([]int{created[1].ID}))
	assert.Empty(t, s.QueryGroups(GroupFilter{}))

	_, err = s.UpdateGroup(gid2, GroupUpdate{Title: "x"})
	assert.True(t, errors.Is(err, ErrGroupNotFound))

	_, err = s.Group([]int{12345})
	assert.True(t, errors.Is(err, ErrResourceNotFound))
}

func TestState_CloneIsIndependent(t *testing.T) {
	s, created := seeded(t, 2)
	c := s.Clone()

	_, err := c.Update(created[0].ID, Update{Active: Bool(true)})
	require.NoError(t, err)

	assert.True(t, s.Focused()[1].Active)
	assert.True(t, c.Focused()[0].Active)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyFlag, "flag": StrategyFlag, "group": StrategyGroup} {
		got, err := ParseStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStrategy("tabs")
	assert.Error(t, err)
}
