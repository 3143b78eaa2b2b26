// Package identity maps chat-platform users to payment-processor identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Store is the single source of truth for identity mappings. Implementations
// must be safe for concurrent use and Put must be an atomic upsert per key.
// Get reports an unregistered user with ok == false and a nil error. Delete
// of an absent key is not an error.
type Store interface {
	Put(ctx context.Context, chatUserID, processorID string) error
	Get(ctx context.Context, chatUserID string) (string, bool, error)
	Delete(ctx context.Context, chatUserID string) error
}

// StorageError reports a failure of the underlying storage layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("identity store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// WrapStorage returns err wrapped in a StorageError, or nil.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// MemoryStore keeps mappings in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (m *MemoryStore) Put(_ context.Context, chatUserID, processorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[chatUserID] = processorID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, chatUserID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.entries[chatUserID]
	return id, ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, chatUserID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, chatUserID)
	return nil
}

// Len returns the number of stored mappings.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
