package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/emberwok/api/internal/domain"
)

// OrderRepository keeps orders in a map guarded by a read-write mutex.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderRepository constructs an empty order store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

// Get returns a copy of the order or a not-found repository error.
func (r *OrderRepository) Get(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, notFoundError{entity: "order", id: orderID}
	}
	return order.Clone(), nil
}

// Save upserts the order under its id.
func (r *OrderRepository) Save(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order.Clone()
	return nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			result = append(result, order.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
