// Package engine implements the list synchronization core: mutations
// over the list and item stores, materialization of the post-mutation
// state, and fanout of that state to every subscriber of the list's
// channel.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"simplist/internal/ident"
	"simplist/internal/models"
	"simplist/internal/store"
	"simplist/pkg/logger"
)

// Publisher fans a materialized snapshot out to every subscriber of a
// channel. Delivery must not block the caller.
type Publisher interface {
	Publish(channel string, snapshot []byte)
}

// SnapshotCache keeps the latest marshaled snapshot per list for the
// cache-first read path.
type SnapshotCache interface {
	Set(ctx context.Context, listID string, raw []byte)
}

// Journal records every successful mutation for asynchronous
// consumers (cache refresh, orphan reconciliation).
type Journal interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Config carries the engine's collaborators. Lists and Items are
// required; everything else has a working default or may be absent.
type Config struct {
	Lists   store.ListStore
	Items   store.ItemStore
	Hub     Publisher
	Cache   SnapshotCache
	Journal Journal
	ListID  ident.Generator
	ItemID  ident.Generator
	Now     func() time.Time
}

type Engine struct {
	lists   store.ListStore
	items   store.ItemStore
	hub     Publisher
	cache   SnapshotCache
	journal Journal
	listID  ident.Generator
	itemID  ident.Generator
	now     func() time.Time
}

func New(cfg Config) *Engine {
	e := &Engine{
		lists:   cfg.Lists,
		items:   cfg.Items,
		hub:     cfg.Hub,
		cache:   cfg.Cache,
		journal: cfg.Journal,
		listID:  cfg.ListID,
		itemID:  cfg.ItemID,
		now:     cfg.Now,
	}
	if e.listID == nil {
		e.listID = ident.Friendly
	}
	if e.itemID == nil {
		e.itemID = ident.Friendly
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// CreateList creates an empty list. Title may be empty; the list gets
// the default public-notice description.
func (e *Engine) CreateList(ctx context.Context, title string) (*models.MaterializedList, error) {
	if utf8.RuneCountInString(title) > models.MaxTitleLen {
		return nil, tooLong("title", models.MaxTitleLen)
	}
	now := e.now()
	desc := models.DefaultDescription
	list := &models.List{
		ID:          e.listID(),
		Title:       title,
		Description: &desc,
		Items:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      models.StatusActive,
	}
	if err := e.lists.Insert(ctx, list); err != nil {
		return nil, fmt.Errorf("create list: %w", err)
	}
	return e.finish(ctx, list, models.ActionListCreated, "")
}

// GetList returns the materialized list. Read-only: no publish.
func (e *Engine) GetList(ctx context.Context, listID string) (*models.MaterializedList, error) {
	list, err := e.loadList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return e.materialize(ctx, list)
}

// ListAll returns every active list, items unexpanded. Diagnostics only.
func (e *Engine) ListAll(ctx context.Context) ([]models.List, error) {
	lists, err := e.lists.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all: %w", err)
	}
	return lists, nil
}

// UpdateList applies a partial update to the list's own fields. A
// submitted Items sequence is the reorder vector: it must be a
// permutation of the current item ids, anything else is rejected
// before the store is touched.
func (e *Engine) UpdateList(ctx context.Context, listID string, patch models.ListPatch) (*models.MaterializedList, error) {
	if patch.Title != nil && utf8.RuneCountInString(*patch.Title) > models.MaxTitleLen {
		return nil, tooLong("title", models.MaxTitleLen)
	}
	if patch.Description != nil && utf8.RuneCountInString(*patch.Description) > models.MaxDescriptionLen {
		return nil, tooLong("description", models.MaxDescriptionLen)
	}
	list, err := e.loadList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if patch.Items != nil {
		if err := validateReorder(list.Items, *patch.Items); err != nil {
			return nil, err
		}
	}
	updated, err := e.lists.UpdateFields(ctx, listID, patch)
	if err != nil {
		return nil, e.listErr(listID, err)
	}
	return e.finish(ctx, updated, models.ActionListUpdated, "")
}

// AddItemToList creates an item and appends its id to the end of the
// list's ordering. The list-exists probe and the insert are not one
// transaction; an item orphaned by a concurrent list deletion is
// reconciled later by the journal consumer (see ReconcileItem).
func (e *Engine) AddItemToList(ctx context.Context, listID, content string) (*models.MaterializedList, error) {
	if content == "" {
		return nil, &ValidationError{Field: "content", Reason: "is required"}
	}
	if utf8.RuneCountInString(content) > models.MaxContentLen {
		return nil, tooLong("content", models.MaxContentLen)
	}
	if _, err := e.loadList(ctx, listID); err != nil {
		return nil, err
	}
	item := &models.Item{
		ID:        e.itemID(),
		Content:   content,
		Checked:   false,
		ListID:    listID,
		CreatedAt: e.now(),
		Status:    models.StatusActive,
	}
	if err := e.items.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	updated, err := e.lists.AppendItem(ctx, listID, item.ID)
	if err != nil {
		return nil, e.listErr(listID, err)
	}
	return e.finish(ctx, updated, models.ActionItemAdded, item.ID)
}

// EditItem applies a partial update to an item, then refreshes the
// owning list's updated_at: content under the list changed even though
// the list document's own fields did not.
func (e *Engine) EditItem(ctx context.Context, listID, itemID string, patch models.ItemPatch) (*models.MaterializedList, error) {
	if patch.Content != nil {
		if *patch.Content == "" {
			return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
		}
		if utf8.RuneCountInString(*patch.Content) > models.MaxContentLen {
			return nil, tooLong("content", models.MaxContentLen)
		}
	}
	if _, err := e.items.UpdateFields(ctx, itemID, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Kind: "Item", ID: itemID}
		}
		return nil, fmt.Errorf("edit item %s: %w", itemID, err)
	}
	updated, err := e.lists.UpdateFields(ctx, listID, models.ListPatch{})
	if err != nil {
		return nil, e.listErr(listID, err)
	}
	return e.finish(ctx, updated, models.ActionItemEdited, itemID)
}

// ToggleItem flips the item's checked state. Read-then-write: two
// concurrent toggles of the same item may land on either state, which
// is acceptable for list semantics.
func (e *Engine) ToggleItem(ctx context.Context, listID, itemID string) (*models.MaterializedList, error) {
	found, err := e.items.FindByIDs(ctx, []string{itemID})
	if err != nil {
		return nil, fmt.Errorf("toggle item %s: %w", itemID, err)
	}
	if len(found) == 0 {
		return nil, &NotFoundError{Kind: "Item", ID: itemID}
	}
	checked := !found[0].Checked
	return e.EditItem(ctx, listID, itemID, models.ItemPatch{Checked: &checked})
}

// RemoveItem drops the id from the list's ordering and soft-deletes
// the item record. The record is retained; materialization filters it.
func (e *Engine) RemoveItem(ctx context.Context, listID, itemID string) (*models.MaterializedList, error) {
	updated, err := e.lists.RemoveItem(ctx, listID, itemID)
	if err != nil {
		return nil, e.listErr(listID, err)
	}
	if err := e.items.MarkDeleted(ctx, itemID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("remove item %s: %w", itemID, err)
	}
	return e.finish(ctx, updated, models.ActionItemRemoved, itemID)
}

// ReconcileItem soft-deletes an item whose owning list no longer
// exists. The journal consumer calls this for every item_added event,
// closing the probe-then-insert race without a cross-document lock.
func (e *Engine) ReconcileItem(ctx context.Context, listID, itemID string) error {
	_, err := e.lists.FindByID(ctx, listID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("reconcile item %s: %w", itemID, err)
	}
	if err := e.items.MarkDeleted(ctx, itemID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("reconcile item %s: %w", itemID, err)
	}
	logger.Info(ctx, "Reconciled orphaned item", "item_id", itemID, "list_id", listID)
	return nil
}

func (e *Engine) loadList(ctx context.Context, listID string) (*models.List, error) {
	list, err := e.lists.FindByID(ctx, listID)
	if err != nil {
		return nil, e.listErr(listID, err)
	}
	return list, nil
}

func (e *Engine) listErr(listID string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: "List", ID: listID}
	}
	return fmt.Errorf("list %s: %w", listID, err)
}

// materialize expands the list's id sequence into full item records in
// that exact sequence. The store returns items in arbitrary order, so
// the reorder by index here is mandatory, and soft-deleted items drop
// out because the store never returns them.
func (e *Engine) materialize(ctx context.Context, list *models.List) (*models.MaterializedList, error) {
	items := []models.Item{}
	if len(list.Items) > 0 {
		fetched, err := e.items.FindByIDs(ctx, list.Items)
		if err != nil {
			return nil, fmt.Errorf("materialize list %s: %w", list.ID, err)
		}
		byID := make(map[string]models.Item, len(fetched))
		for _, it := range fetched {
			byID[it.ID] = it
		}
		for _, id := range list.Items {
			if it, ok := byID[id]; ok {
				items = append(items, it)
			}
		}
	}
	return &models.MaterializedList{
		ID:          list.ID,
		Title:       list.Title,
		Description: list.Description,
		Items:       items,
		CreatedAt:   list.CreatedAt,
		UpdatedAt:   list.UpdatedAt,
	}, nil
}

// finish materializes the post-mutation state, fans it out, refreshes
// the snapshot cache, and journals the event. Fanout and cache are
// best-effort side channels; only materialization failures surface.
func (e *Engine) finish(ctx context.Context, list *models.List, action, itemID string) (*models.MaterializedList, error) {
	ml, err := e.materialize(ctx, list)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(ml)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot for list %s: %w", list.ID, err)
	}
	if e.hub != nil {
		e.hub.Publish(list.ID, raw)
	}
	if e.cache != nil {
		e.cache.Set(ctx, list.ID, raw)
	}
	if e.journal != nil {
		ev := models.Event{Action: action, ListID: list.ID, ItemID: itemID, At: e.now()}
		if err := e.journal.Publish(ctx, ev); err != nil {
			logger.Warn(ctx, "Journal publish failed", "error", err, "action", action, "list_id", list.ID)
		}
	}
	return ml, nil
}

// validateReorder rejects a submitted ordering that is not a
// permutation of the current one: unknown ids, dropped ids, and
// duplicates all fail before anything is stored.
func validateReorder(current, submitted []string) error {
	if len(submitted) != len(current) {
		return &ValidationError{Field: "items", Reason: "must contain exactly the list's current item ids"}
	}
	known := make(map[string]bool, len(current))
	for _, id := range current {
		known[id] = false
	}
	for _, id := range submitted {
		seen, ok := known[id]
		if !ok {
			return &ValidationError{Field: "items", Reason: fmt.Sprintf("unknown item id %s", id)}
		}
		if seen {
			return &ValidationError{Field: "items", Reason: fmt.Sprintf("duplicate item id %s", id)}
		}
		known[id] = true
	}
	return nil
}
