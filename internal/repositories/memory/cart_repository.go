package memory

import (
	"context"
	"sync"

	domain "github.com/emberwok/api/internal/domain"
)

// CartRepository keeps carts in a map guarded by a read-write mutex.
// All reads and writes exchange deep copies.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

// NewCartRepository constructs an empty cart store.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

// Get returns a copy of the cart or a not-found repository error.
func (r *CartRepository) Get(_ context.Context, cartID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[cartID]
	if !ok {
		return domain.Cart{}, notFoundError{entity: "cart", id: cartID}
	}
	return cart.Clone(), nil
}

// Save upserts the cart under its id.
func (r *CartRepository) Save(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.ID] = cart.Clone()
	return nil
}

// Delete removes the cart. Deleting an absent cart is a no-op.
func (r *CartRepository) Delete(_ context.Context, cartID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartID)
	return nil
}
