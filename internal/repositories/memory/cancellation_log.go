package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

// CancellationLog records cancellations per customer in insertion order.
type CancellationLog struct {
	mu      sync.RWMutex
	records map[string][]domain.CancellationRecord
}

// NewCancellationLog constructs an empty cancellation log.
func NewCancellationLog() *CancellationLog {
	return &CancellationLog{records: make(map[string][]domain.CancellationRecord)}
}

// Record appends the cancellation to the customer's log.
func (l *CancellationLog) Record(_ context.Context, rec domain.CancellationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.CustomerID] = append(l.records[rec.CustomerID], rec)
	return nil
}

// CountSince counts the customer's cancellations at or after the cutoff.
func (l *CancellationLog) CountSince(_ context.Context, customerID string, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := 0
	for _, rec := range l.records[customerID] {
		if !rec.OccurredAt.Before(since) {
			count++
		}
	}
	return count, nil
}
