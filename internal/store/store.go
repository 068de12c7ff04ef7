// Package store defines the narrow persistence contract the sync engine
// consumes. Implementations live in subpackages; the engine never sees
// anything wider than these interfaces.
package store

import (
	"context"
	"errors"

	"simplist/internal/models"
)

// ErrNotFound is returned when the target record does not exist or is
// soft-deleted. Callers match it with errors.Is.
var ErrNotFound = errors.New("record not found")

// ListStore is CRUD over list records. UpdateFields applies only the
// fields set in the patch and always stamps updated_at in the same
// write; AppendItem and RemoveItem mutate the ordered id sequence as a
// single atomic document update so concurrent appends cannot lose ids.
type ListStore interface {
	Insert(ctx context.Context, list *models.List) error
	FindByID(ctx context.Context, id string) (*models.List, error)
	UpdateFields(ctx context.Context, id string, patch models.ListPatch) (*models.List, error)
	AppendItem(ctx context.Context, listID, itemID string) (*models.List, error)
	RemoveItem(ctx context.Context, listID, itemID string) (*models.List, error)
	FindAll(ctx context.Context) ([]models.List, error)
}

// ItemStore is CRUD over item records. FindByIDs makes no ordering
// promise; callers reorder. MarkDeleted soft-deletes.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) error
	FindByIDs(ctx context.Context, ids []string) ([]models.Item, error)
	UpdateFields(ctx context.Context, id string, patch models.ItemPatch) (*models.Item, error)
	MarkDeleted(ctx context.Context, id string) error
}
