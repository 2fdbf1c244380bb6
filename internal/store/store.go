package store

import (
	"context"
	"fmt"

	"lostfound/internal/models"
)

// ItemStore is the relational-store capability: a CRUD facade over the
// item rows, no business logic.
type ItemStore interface {
	InsertItem(ctx context.Context, item *models.Item) error
	// ListItems returns all items ordered by creation time, newest first.
	ListItems(ctx context.Context) ([]*models.Item, error)
	// GetItemsByIDs fetches the given ids in one batch. Missing ids are
	// simply absent from the map.
	GetItemsByIDs(ctx context.Context, ids []string) (map[string]*models.Item, error)
}

// StorageError wraps a relational-store failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
