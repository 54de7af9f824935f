package repository

import (
	"errors"

	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// pendingSuffix names the cache key listing entries that were written to the cache
// while the remote store refused or missed them. The value maps an entity key to
// true for a pending delete and false for a pending upsert. Entries stay pending
// until a later remote write for the same key succeeds.
const pendingSuffix = ":pending"

type pendingSet map[string]bool

func loadPending(tx KeyValueTx, key string) (pendingSet, error) {
	pending := pendingSet{}
	if err := tx.Get(key, &pending); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return pendingSet{}, nil
		}
		return nil, err
	}
	if pending == nil {
		pending = pendingSet{}
	}
	return pending, nil
}

// updatePending edits the pending set at key. An empty key means the collection
// does not track pending entries.
func updatePending(tx KeyValueTx, key string, edit func(pendingSet)) error {
	if key == "" || edit == nil {
		return nil
	}
	pending, err := loadPending(tx, key)
	if err != nil {
		return err
	}
	edit(pending)
	return tx.Set(key, pending)
}

func markPending(ids []string, deleted bool) func(pendingSet) {
	return func(pending pendingSet) {
		for _, id := range ids {
			pending[id] = deleted
		}
	}
}

func settlePending(ids []string) func(pendingSet) {
	return func(pending pendingSet) {
		for _, id := range ids {
			delete(pending, id)
		}
	}
}

// overlayPending lays locally pending entries over a remote read. Pending deletes
// are dropped, pending upserts replace the remote entry or are appended in local
// order.
func overlayPending[T any](remote, local []T, pending pendingSet, key func(T) string) []T {
	if len(pending) == 0 {
		return remote
	}
	localByKey := make(map[string]T, len(local))
	for _, item := range local {
		localByKey[key(item)] = item
	}
	result := make([]T, 0, len(remote)+len(pending))
	seen := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		k := key(item)
		seen[k] = struct{}{}
		deleted, isPending := pending[k]
		switch {
		case !isPending:
			result = append(result, item)
		case deleted:
		default:
			if localItem, ok := localByKey[k]; ok {
				result = append(result, localItem)
			} else {
				result = append(result, item)
			}
		}
	}
	for _, item := range local {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		if deleted, isPending := pending[k]; isPending && !deleted {
			result = append(result, item)
		}
	}
	return result
}
