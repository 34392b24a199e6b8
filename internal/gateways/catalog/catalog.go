// Package catalog is the in-memory reference implementation of the
// catalog gateway: read-only item lookup plus stock reservation and
// release for the order lifecycle engine.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/emberwok/api/internal/domain"
)

// ErrItemNotFound indicates the menu item does not exist.
var ErrItemNotFound = errors.New("catalog: item not found")

// ErrInsufficientStock indicates a reservation exceeds the remaining stock.
var ErrInsufficientStock = errors.New("catalog: insufficient stock")

// notFoundError matches ErrItemNotFound under errors.Is and carries the
// IsNotFound marker consumers test for.
type notFoundError struct {
	itemID string
}

func (e notFoundError) Error() string        { return fmt.Sprintf("catalog: item not found: %s", e.itemID) }
func (e notFoundError) Is(target error) bool { return target == ErrItemNotFound }
func (e notFoundError) IsNotFound() bool     { return true }

// stockError matches ErrInsufficientStock under errors.Is and carries
// the IsInsufficientStock marker consumers test for.
type stockError struct {
	itemID     string
	have, want int
}

func (e stockError) Error() string {
	return fmt.Sprintf("catalog: insufficient stock: %s has %d left, wanted %d", e.itemID, e.have, e.want)
}
func (e stockError) Is(target error) bool      { return target == ErrInsufficientStock }
func (e stockError) IsInsufficientStock() bool { return true }

// Service holds the menu and stock levels behind a read-write mutex.
type Service struct {
	mu    sync.RWMutex
	items map[string]domain.MenuItem
}

// NewService constructs a catalog seeded with the given items.
func NewService(items ...domain.MenuItem) *Service {
	s := &Service{items: make(map[string]domain.MenuItem, len(items))}
	for _, item := range items {
		s.items[item.ID] = cloneItem(item)
	}
	return s
}

// Upsert inserts or replaces a menu item.
func (s *Service) Upsert(item domain.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = cloneItem(item)
}

// GetItem returns a copy of the item or ErrItemNotFound.
func (s *Service) GetItem(_ context.Context, itemID string) (domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return domain.MenuItem{}, notFoundError{itemID: itemID}
	}
	return cloneItem(item), nil
}

// ReserveStock decrements the item's stock by qty, marking the item
// unavailable when stock reaches zero. Fails without mutation when the
// remaining stock is insufficient.
func (s *Service) ReserveStock(_ context.Context, itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("catalog: reserve quantity must be positive, got %d", qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return notFoundError{itemID: itemID}
	}
	if item.StockQuantity < qty {
		return stockError{itemID: itemID, have: item.StockQuantity, want: qty}
	}
	item.StockQuantity -= qty
	if item.StockQuantity == 0 {
		item.IsAvailable = false
	}
	s.items[itemID] = item
	return nil
}

// ReleaseStock returns qty units to the item's stock, restoring
// availability when stock climbs back above zero.
func (s *Service) ReleaseStock(_ context.Context, itemID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("catalog: release quantity must be positive, got %d", qty)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok {
		return notFoundError{itemID: itemID}
	}
	item.StockQuantity += qty
	if item.StockQuantity > 0 {
		item.IsAvailable = true
	}
	s.items[itemID] = item
	return nil
}

func cloneItem(item domain.MenuItem) domain.MenuItem {
	dup := item
	dup.Extras = append([]domain.ItemExtra(nil), item.Extras...)
	dup.RemovableIngredients = append([]string(nil), item.RemovableIngredients...)
	dup.Availability = append([]domain.AvailabilityWindow(nil), item.Availability...)
	if item.SizeAdjustments != nil {
		dup.SizeAdjustments = make(map[domain.ItemSize]int64, len(item.SizeAdjustments))
		for k, v := range item.SizeAdjustments {
			dup.SizeAdjustments[k] = v
		}
	}
	return dup
}
