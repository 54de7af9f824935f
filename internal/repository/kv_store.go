package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// KeyValueStore is the durable local surface behind the fallback cache.
// Values are JSON encoded; one key holds one whole entity collection.
type KeyValueStore interface {
	// Get decodes the value at key into dest or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	// Update runs fn against a consistent view of keys and commits its writes atomically.
	Update(ctx context.Context, keys []string, fn func(tx KeyValueTx) error) error
}

// KeyValueTx is the view handed to KeyValueStore.Update callbacks.
type KeyValueTx interface {
	Get(key string, dest interface{}) error
	Set(key string, value interface{}) error
}

// MemoryStore is an in-process KeyValueStore. It does not survive restarts and
// is meant for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get implements KeyValueStore.
func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set implements KeyValueStore.
func (s *MemoryStore) Set(_ context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	s.mu.Lock()
	s.values[key] = payload
	s.mu.Unlock()
	return nil
}

// Update implements KeyValueStore. The store lock is held for the whole callback.
func (s *MemoryStore) Update(_ context.Context, _ []string, fn func(tx KeyValueTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memoryTx{store: s, writes: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for key, payload := range tx.writes {
		s.values[key] = payload
	}
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	writes map[string][]byte
}

func (t *memoryTx) Get(key string, dest interface{}) error {
	raw, ok := t.writes[key]
	if !ok {
		raw, ok = t.store.values[key]
	}
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (t *memoryTx) Set(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	t.writes[key] = payload
	return nil
}

// loadList reads a collection from tx, treating a missing key as empty.
func loadList[T any](tx KeyValueTx, key string) ([]T, error) {
	var items []T
	if err := tx.Get(key, &items); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return []T{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
