package host

import "context"

// Store persists a State snapshot. View gives read access; Mutate must apply
// fn atomically with respect to other writers and persist the result only
// when fn returns nil.
type Store interface {
	View(ctx context.Context, fn func(*State) error) error
	Mutate(ctx context.Context, fn func(*State) error) error
}

// StoreOperations implements Operations on top of any Store.
type StoreOperations struct {
	store Store
}

var _ Operations = (*StoreOperations)(nil)

// NewStoreOperations returns Operations backed by store.
func NewStoreOperations(store Store) *StoreOperations {
	return &StoreOperations{store: store}
}

func (o *StoreOperations) Query(ctx context.Context, f Filter) ([]Resource, error) {
	var out []Resource
	err := o.store.View(ctx, func(s *State) error {
		out = s.Query(f)
		return nil
	})
	return out, err
}

func (o *StoreOperations) Focused(ctx context.Context) ([]Resource, error) {
	var out []Resource
	err := o.store.View(ctx, func(s *State) error {
		out = s.Focused()
		return nil
	})
	return out, err
}

func (o *StoreOperations) QueryGroups(ctx context.Context, f GroupFilter) ([]Group, error) {
	var out []Group
	err := o.store.View(ctx, func(s *State) error {
		out = s.QueryGroups(f)
		return nil
	})
	return out, err
}

func (o *StoreOperations) Create(ctx context.Context, opts CreateOptions) (Resource, error) {
	var out Resource
	err := o.store.Mutate(ctx, func(s *State) error {
		out = s.Create(opts)
		return nil
	})
	return out, err
}

func (o *StoreOperations) CreateWindow(ctx context.Context) (Window, error) {
	var out Window
	err := o.store.Mutate(ctx, func(s *State) error {
		out = s.CreateWindow()
		return nil
	})
	return out, err
}

func (o *StoreOperations) Update(ctx context.Context, id int, u Update) (Resource, error) {
	var out Resource
	err := o.store.Mutate(ctx, func(s *State) error {
		var err error
		out, err = s.Update(id, u)
		return err
	})
	return out, err
}

func (o *StoreOperations) Group(ctx context.Context, ids []int) (int, error) {
	var out int
	err := o.store.Mutate(ctx, func(s *State) error {
		var err error
		out, err = s.Group(ids)
		return err
	})
	return out, err
}

func (o *StoreOperations) UpdateGroup(ctx context.Context, id int, u GroupUpdate) (Group, error) {
	var out Group
	err := o.store.Mutate(ctx, func(s *State) error {
		var err error
		out, err = s.UpdateGroup(id, u)
		return err
	})
	return out, err
}

func (o *StoreOperations) Ungroup(ctx context.Context, ids []int) error {
	return o.store.Mutate(ctx, func(s *State) error {
		return s.Ungroup(ids)
	})
}
