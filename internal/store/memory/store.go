// Package memory is a mutex-guarded in-memory store. It backs the test
// suite and serves as the zero-config fallback when DATABASE_URL is
// unset; data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"simplist/internal/models"
	"simplist/internal/store"
)

// DB holds both collections behind one lock, so every mutation is
// atomic with respect to every other, matching the per-document
// serialization a document store provides.
type DB struct {
	mu    sync.RWMutex
	now   func() time.Time
	lists map[string]models.List
	items map[string]models.Item
}

func New() *DB {
	return &DB{
		now:   time.Now,
		lists: make(map[string]models.List),
		items: make(map[string]models.Item),
	}
}

// SetClock overrides the clock used to stamp updated_at. Tests use a
// stepping clock to make timestamp assertions deterministic.
func (d *DB) SetClock(now func() time.Time) { d.now = now }

func (d *DB) Lists() store.ListStore { return &listStore{d} }
func (d *DB) Items() store.ItemStore { return &itemStore{d} }

type listStore struct{ d *DB }

func (s *listStore) Insert(ctx context.Context, list *models.List) error {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.lists[list.ID] = cloneList(*list)
	return nil
}

func (s *listStore) FindByID(ctx context.Context, id string) (*models.List, error) {
	_ = ctx
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	l, ok := s.d.lists[id]
	if !ok || l.Status == models.StatusDeleted {
		return nil, store.ErrNotFound
	}
	out := cloneList(l)
	return &out, nil
}

func (s *listStore) UpdateFields(ctx context.Context, id string, patch models.ListPatch) (*models.List, error) {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	l, ok := s.d.lists[id]
	if !ok || l.Status == models.StatusDeleted {
		return nil, store.ErrNotFound
	}
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.Description != nil {
		desc := *patch.Description
		l.Description = &desc
	}
	if patch.Items != nil {
		l.Items = append([]string(nil), (*patch.Items)...)
	}
	l.UpdatedAt = s.d.now()
	s.d.lists[id] = l
	out := cloneList(l)
	return &out, nil
}

func (s *listStore) AppendItem(ctx context.Context, listID, itemID string) (*models.List, error) {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	l, ok := s.d.lists[listID]
	if !ok || l.Status == models.StatusDeleted {
		return nil, store.ErrNotFound
	}
	l.Items = append(append([]string(nil), l.Items...), itemID)
	l.UpdatedAt = s.d.now()
	s.d.lists[listID] = l
	out := cloneList(l)
	return &out, nil
}

func (s *listStore) RemoveItem(ctx context.Context, listID, itemID string) (*models.List, error) {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	l, ok := s.d.lists[listID]
	if !ok || l.Status == models.StatusDeleted {
		return nil, store.ErrNotFound
	}
	kept := make([]string, 0, len(l.Items))
	for _, id := range l.Items {
		if id != itemID {
			kept = append(kept, id)
		}
	}
	l.Items = kept
	l.UpdatedAt = s.d.now()
	s.d.lists[listID] = l
	out := cloneList(l)
	return &out, nil
}

func (s *listStore) FindAll(ctx context.Context) ([]models.List, error) {
	_ = ctx
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	out := make([]models.List, 0, len(s.d.lists))
	for _, l := range s.d.lists {
		if l.Status == models.StatusDeleted {
			continue
		}
		out = append(out, cloneList(l))
	}
	return out, nil
}

type itemStore struct{ d *DB }

func (s *itemStore) Insert(ctx context.Context, item *models.Item) error {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.items[item.ID] = *item
	return nil
}

func (s *itemStore) FindByIDs(ctx context.Context, ids []string) ([]models.Item, error) {
	_ = ctx
	s.d.mu.RLock()
	defer s.d.mu.RUnlock()
	// The contract makes no ordering promise. Returning results in
	// reverse keeps callers honest about reordering themselves.
	var out []models.Item
	for i := len(ids) - 1; i >= 0; i-- {
		it, ok := s.d.items[ids[i]]
		if !ok || it.Status == models.StatusDeleted {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *itemStore) UpdateFields(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error) {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	it, ok := s.d.items[id]
	if !ok || it.Status == models.StatusDeleted {
		return nil, store.ErrNotFound
	}
	if patch.Content != nil {
		it.Content = *patch.Content
	}
	if patch.Checked != nil {
		it.Checked = *patch.Checked
	}
	s.d.items[id] = it
	out := it
	return &out, nil
}

func (s *itemStore) MarkDeleted(ctx context.Context, id string) error {
	_ = ctx
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	it, ok := s.d.items[id]
	if !ok || it.Status == models.StatusDeleted {
		return store.ErrNotFound
	}
	it.Status = models.StatusDeleted
	s.d.items[id] = it
	return nil
}

func cloneList(l models.List) models.List {
	l.Items = append([]string(nil), l.Items...)
	if l.Description != nil {
		desc := *l.Description
		l.Description = &desc
	}
	return l
}
