package repository

import (
	"context"
	"errors"

	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// CacheAdapter exposes one fallback cache key as an Adapter over the whole collection.
type CacheAdapter[T any] struct {
	store KeyValueStore
	key   string
	id    func(T) string
}

// NewCacheAdapter constructs a cache adapter for the collection stored at key.
func NewCacheAdapter[T any](store KeyValueStore, key string, id func(T) string) *CacheAdapter[T] {
	return &CacheAdapter[T]{store: store, key: key, id: id}
}

// Key returns the cache key holding the collection.
func (a *CacheAdapter[T]) Key() string {
	return a.key
}

// FetchAll implements Adapter. A missing key is an empty collection.
func (a *CacheAdapter[T]) FetchAll(ctx context.Context) ([]T, error) {
	var items []T
	if err := a.store.Get(ctx, a.key, &items); err != nil {
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

// PendingKey returns the key of the pending set kept beside the collection.
func (a *CacheAdapter[T]) PendingKey() string {
	return a.key + pendingSuffix
}

// Upsert implements Adapter by inserting or replacing entries by key.
func (a *CacheAdapter[T]) Upsert(ctx context.Context, items []T) error {
	return a.apply(ctx, func(current []T) []T { return upsertByKey(current, items, a.id) }, nil)
}

// Delete implements Adapter by filtering the entry out.
func (a *CacheAdapter[T]) Delete(ctx context.Context, id string) error {
	return a.apply(ctx, func(current []T) []T { return removeByKey(current, id, a.id) }, nil)
}

// apply rewrites the collection with fn. A non-nil edit changes the pending set in
// the same cache transaction.
func (a *CacheAdapter[T]) apply(ctx context.Context, fn func([]T) []T, edit func(pendingSet)) error {
	keys := []string{a.key}
	pendingKey := ""
	if edit != nil {
		pendingKey = a.PendingKey()
		keys = append(keys, pendingKey)
	}
	return a.store.Update(ctx, keys, func(tx KeyValueTx) error {
		current, err := loadList[T](tx, a.key)
		if err != nil {
			return err
		}
		if err := tx.Set(a.key, fn(current)); err != nil {
			return err
		}
		return updatePending(tx, pendingKey, edit)
	})
}

// reconcile stores a fresh remote read with pending local entries laid over it and
// returns the reconciled list.
func (a *CacheAdapter[T]) reconcile(ctx context.Context, remote []T) ([]T, error) {
	var result []T
	err := a.store.Update(ctx, []string{a.key, a.PendingKey()}, func(tx KeyValueTx) error {
		local, err := loadList[T](tx, a.key)
		if err != nil {
			return err
		}
		pending, err := loadPending(tx, a.PendingKey())
		if err != nil {
			return err
		}
		result = overlayPending(remote, local, pending, a.id)
		return tx.Set(a.key, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Replace overwrites the whole collection, used to mirror a fresh remote read.
func (a *CacheAdapter[T]) Replace(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return a.store.Set(ctx, a.key, items)
}
