// Package storage defines the session persistence interface and its
// implementations. Only per-chat choices are stored; the catalog itself
// is always fetched fresh.
package storage

import (
	"context"
	"errors"
	"time"

	"storefront/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the interface for all persistence operations.
type Storage interface {
	LoadFilter(ctx context.Context, chatID int64) (model.FilterSpec, error)
	SaveFilter(ctx context.Context, chatID int64, spec model.FilterSpec) error

	ListFavorites(ctx context.Context, chatID int64) ([]int64, error)
	SetFavorite(ctx context.Context, chatID, productID int64, favorite bool) error

	AddToCart(ctx context.Context, chatID, productID int64, quantity int) (int, error)
	RemoveFromCart(ctx context.Context, chatID, productID int64) error
	ClearCart(ctx context.Context, chatID int64) error
	ListCart(ctx context.Context, chatID int64) ([]model.CartItem, error)

	Touch(ctx context.Context, chatID int64) error
	DeleteStaleSessions(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
