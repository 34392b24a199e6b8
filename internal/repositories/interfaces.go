// Package repositories defines the storage contracts consumed by the
// engines. Implementations live in subpackages; the engines only see
// these interfaces plus the RepositoryError kind contract.
package repositories

import (
	"context"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

// RepositoryError lets services translate storage failures into their own
// sentinel errors without knowing the backing implementation.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
}

// CartRepository persists mutable carts keyed by cart id.
type CartRepository interface {
	Get(ctx context.Context, cartID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	Delete(ctx context.Context, cartID string) error
}

// OrderRepository persists orders. Orders are never deleted, only
// updated through their status envelope.
type OrderRepository interface {
	Get(ctx context.Context, orderID string) (domain.Order, error)
	Save(ctx context.Context, order domain.Order) error
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

// CancellationLog records order cancellations for rate-limiting.
type CancellationLog interface {
	Record(ctx context.Context, rec domain.CancellationRecord) error
	CountSince(ctx context.Context, customerID string, since time.Time) (int, error)
}
