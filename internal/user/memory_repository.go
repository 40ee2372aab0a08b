package user

import (
	"context"
	"sync"
)

// memoryRepository implements Repository using in-memory storage
type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepository creates a new in-memory repository
func NewMemoryRepository() Repository {
	return &memoryRepository{
		records: make(map[string]Record),
	}
}

func (r *memoryRepository) Get(_ context.Context, userID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[userID]
	if !exists {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (r *memoryRepository) Insert(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.UserID]; exists {
		return ErrConflict
	}
	r.records[record.UserID] = record
	return nil
}

func (r *memoryRepository) Update(_ context.Context, userID string, input UpdateInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[userID]
	if !exists {
		return ErrNotFound
	}
	r.records[userID] = input.apply(record)
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[userID]; !exists {
		return ErrNotFound
	}
	delete(r.records, userID)
	return nil
}
