// Package delivery remembers which webhook deliveries have already been processed.
package delivery

import (
	"context"
	"sync"
	"time"
)

// Ledger claims delivery ids so a redelivered message is applied at most once.
type Ledger interface {
	// Claim records deliveryID and reports whether this call was the first to do so.
	Claim(ctx context.Context, deliveryID string) (bool, error)
	// Release forgets deliveryID so a later retry can be processed.
	Release(ctx context.Context, deliveryID string) error
}

// NopLedger claims every delivery. Used when de-duplication is disabled.
type NopLedger struct{}

func (NopLedger) Claim(context.Context, string) (bool, error) { return true, nil }
func (NopLedger) Release(context.Context, string) error { return nil }

// MemoryLedger keeps claims in process memory until they expire.
type MemoryLedger struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryLedger returns a ledger whose claims expire after ttl.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

func (l *MemoryLedger) Claim(_ context.Context, deliveryID string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now)
	if _, exists := l.entries[deliveryID]; exists {
		return false, nil
	}
	l.entries[deliveryID] = now.Add(l.ttl)
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, deliveryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, deliveryID)
	return nil
}

func (l *MemoryLedger) evict(now time.Time) {
	for id, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, id)
		}
	}
}
