package host

import (
	"fmt"
	"sort"
)

const logPrefix = "host:state"

// DefaultURL is given to resources created without one.
const DefaultURL = "about:blank"

// State is a complete snapshot of host windows, resources and groups. It
// carries the mutation rules every backend shares; backends differ only in
// where the snapshot lives and how concurrent writers are serialized.
//
// State is not safe for concurrent use.
type State struct {
	NextID    int        `json:"nextId"`
	Windows   []Window   `json:"windows"`
	Resources []Resource `json:"resources"`
	Groups    []Group    `json:"groups"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{NextID: 1}
}

func (s *State) allocID() int {
	if s.NextID < 1 {
		s.NextID = 1
	}
	id := s.NextID
	s.NextID++
	return id
}

func (s *State) focusedWindowID() int {
	for _, w := range s.Windows {
		if w.Focused {
			return w.ID
		}
	}
	return 0
}

func (s *State) resourcePos(id int) int {
	for i := range s.Resources {
		if s.Resources[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) groupPos(id int) int {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

// reindex keeps Index equal to the position within the window.
func (s *State) reindex() {
	next := make(map[int]int)
	for i := range s.Resources {
		r := &s.Resources[i]
		r.Index = next[r.WindowID]
		next[r.WindowID]++
	}
}

func (s *State) focus(windowID int) {
	for i := range s.Windows {
		s.Windows[i].Focused = s.Windows[i].ID == windowID
	}
}

func (s *State) activate(pos int) {
	target := &s.Resources[pos]
	for i := range s.Resources {
		r := &s.Resources[i]
		if r.WindowID != target.WindowID || i == pos {
			continue
		}
		r.Active = false
		r.Highlighted = false
	}
	target.Active = true
	target.Highlighted = true
}

func (s *State) newWindow() int {
	id := s.allocID()
	s.Windows = append(s.Windows, Window{ID: id})
	s.focus(id)
	return id
}

func (s *State) appendResource(windowID int, opts CreateOptions) Resource {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}
	title := opts.Title
	if title == "" {
		title = url
	}
	s.Resources = append(s.Resources, Resource{
		ID:       s.allocID(),
		WindowID: windowID,
		Title:    title,
		URL:      url,
	})
	pos := len(s.Resources) - 1
	s.activate(pos)
	s.reindex()
	return s.Resources[pos]
}

// Query returns matching resources ordered by window then index.
func (s *State) Query(f Filter) []Resource {
	windowID := f.WindowID
	if f.FocusedWindow {
		windowID = s.focusedWindowID()
		if windowID == 0 {
			return []Resource{}
		}
	}

	out := []Resource{}
	for _, r := range s.Resources {
		if windowID != 0 && r.WindowID != windowID {
			continue
		}
		if f.GroupID != 0 && r.GroupID != f.GroupID {
			continue
		}
		if f.Active != nil && r.Active != *f.Active {
			continue
		}
		if f.Highlighted != nil && r.Highlighted != *f.Highlighted {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WindowID != out[j].WindowID {
			return out[i].WindowID < out[j].WindowID
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Focused returns the resources of the focused window in index order.
func (s *State) Focused() []Resource {
	return s.Query(Filter{FocusedWindow: true})
}

// Create opens a resource at the end of the focused window and activates it.
// A window is opened first when none exists.
func (s *State) Create(opts CreateOptions) Resource {
	windowID := s.focusedWindowID()
	if windowID == 0 {
		windowID = s.newWindow()
	}
	return s.appendResource(windowID, opts)
}

// CreateWindow opens a focused window holding one fresh resource.
func (s *State) CreateWindow() Window {
	id := s.newWindow()
	s.appendResource(id, CreateOptions{})
	return Window{ID: id, Focused: true}
}

// Update applies u to the resource with the given id. Active implies
// highlighted, so clearing the highlight of the active resource is a no-op.
func (s *State) Update(id int, u Update) (Resource, error) {
	pos := s.resourcePos(id)
	if pos < 0 {
		return Resource{}, fmt.Errorf("%s - update %d: %w", logPrefix, id, ErrResourceNotFound)
	}
	if u.Active != nil && *u.Active {
		s.activate(pos)
	}
	if u.Highlighted != nil {
		r := &s.Resources[pos]
		r.Highlighted = *u.Highlighted || r.Active
	}
	return s.Resources[pos], nil
}

// Group moves the resources into a new group in the window of the first one
// and returns the group id.
func (s *State) Group(ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%s - group: no resources given: %w", logPrefix, ErrResourceNotFound)
	}
	positions := make([]int, 0, len(ids))
	for _, id := range ids {
		pos := s.resourcePos(id)
		if pos < 0 {
			return 0, fmt.Errorf("%s - group %d: %w", logPrefix, id, ErrResourceNotFound)
		}
		positions = append(positions, pos)
	}

	group := Group{ID: s.allocID(), WindowID: s.Resources[positions[0]].WindowID}
	s.Groups = append(s.Groups, group)
	for _, pos := range positions {
		s.Resources[pos].GroupID = group.ID
	}
	s.dropEmptyGroups()
	return group.ID, nil
}

// UpdateGroup relabels a group.
func (s *State) UpdateGroup(id int, u GroupUpdate) (Group, error) {
	pos := s.groupPos(id)
	if pos < 0 {
		return Group{}, fmt.Errorf("%s - update group %d: %w", logPrefix, id, ErrGroupNotFound)
	}
	g := &s.Groups[pos]
	if u.Title != "" {
		g.Title = u.Title
	}
	if u.Color != "" {
		g.Color = u.Color
	}
	return *g, nil
}

// Ungroup removes the resources from their groups. Groups left empty are
// deleted.
func (s *State) Ungroup(ids []int) error {
	for _, id := range ids {
		pos := s.resourcePos(id)
		if pos < 0 {
			return fmt.Errorf("%s - ungroup %d: %w", logPrefix, id, ErrResourceNotFound)
		}
		s.Resources[pos].GroupID = 0
	}
	s.dropEmptyGroups()
	return nil
}

func (s *State) dropEmptyGroups() {
	used := make(map[int]bool)
	for _, r := range s.Resources {
		if r.GroupID != 0 {
			used[r.GroupID] = true
		}
	}
	kept := s.Groups[:0]
	for _, g := range s.Groups {
		if used[g.ID] {
			kept = append(kept, g)
		}
	}
	s.Groups = kept
}

// QueryGroups returns matching groups in creation order.
func (s *State) QueryGroups(f GroupFilter) []Group {
	out := []Group{}
	for _, g := range s.Groups {
		if f.Title != "" && g.Title != f.Title {
			continue
		}
		if f.WindowID != 0 && g.WindowID != f.WindowID {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{NextID: s.NextID}
	c.Windows = append([]Window(nil), s.Windows...)
	c.Resources = append([]Resource(nil), s.Resources...)
	c.Groups = append([]Group(nil), s.Groups...)
	return c
}
