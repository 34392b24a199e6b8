// Package loyalty is the in-memory reference implementation of the
// loyalty gateway: point balances with an append-only transaction log.
package loyalty

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/emberwok/api/internal/domain"
)

// ErrInsufficientPoints indicates an adjustment would drive a balance
// negative.
var ErrInsufficientPoints = errors.New("loyalty: insufficient points")

// Service tracks balances and point transactions per customer.
type Service struct {
	clock func() time.Time
	newID func() string

	mu       sync.RWMutex
	balances map[string]int
	history  map[string][]domain.PointTransaction
}

// NewService constructs the gateway. Nil clock and id generator default
// to time.Now and ULIDs.
func NewService(clock func() time.Time, newID func() string) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &Service{
		clock:    clock,
		newID:    newID,
		balances: make(map[string]int),
		history:  make(map[string][]domain.PointTransaction),
	}
}

// Balance returns the customer's current point balance. Unknown
// customers have a zero balance.
func (s *Service) Balance(_ context.Context, customerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[customerID], nil
}

// Adjust applies a delta to the customer's balance and appends a
// transaction. Negative deltas that exceed the balance fail without
// mutation.
func (s *Service) Adjust(_ context.Context, customerID string, delta int, reason, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.balances[customerID]
	if balance+delta < 0 {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientPoints, balance, -delta)
	}
	s.balances[customerID] = balance + delta
	s.history[customerID] = append(s.history[customerID], domain.PointTransaction{
		ID:         "pts_" + s.newID(),
		CustomerID: customerID,
		Points:     delta,
		Reason:     reason,
		OrderID:    orderID,
		CreatedAt:  s.clock().UTC(),
	})
	return nil
}

// History returns a copy of the customer's point transactions, oldest
// first.
func (s *Service) History(_ context.Context, customerID string) ([]domain.PointTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PointTransaction(nil), s.history[customerID]...), nil
}
