package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// GatewayObserver receives persistence events. MetricsService implements it.
type GatewayObserver interface {
	ObserveRemoteFailure(collection, operation, class string)
	SetBreakerOpen(open bool)
	ObserveCacheWrite(collection string, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveRemoteFailure(string, string, string) {}

func (noopObserver) SetBreakerOpen(bool) {}

func (noopObserver) ObserveCacheWrite(string, time.Duration) {}

// GatewayConfig is fixed at startup.
type GatewayConfig struct {
	// RemoteEnabled is computed once from the store credentials and a startup ping.
	RemoteEnabled bool
	RemoteRetries int
	RetryBackoff  time.Duration
	RemoteTimeout time.Duration
}

// GatewayStatus is an operator view of the gateway.
type GatewayStatus struct {
	RemoteEnabled bool       `json:"remoteEnabled"`
	BreakerOpen   bool       `json:"breakerOpen"`
	TrippedAt     *time.Time `json:"trippedAt,omitempty"`
	TripReason    string     `json:"tripReason,omitempty"`
}

// Gateway decides per call whether the remote store or the fallback cache serves it.
//
// The circuit breaker starts closed. The first remote failure whose class trips it
// opens it for the lifetime of this instance; every collection sharing the gateway
// then goes straight to the cache. There is no automatic reset.
type Gateway struct {
	remote   *PostgresStore
	cache    KeyValueStore
	cfg      GatewayConfig
	logger   *zap.Logger
	observer GatewayObserver

	open       atomic.Bool
	mu         sync.Mutex
	trippedAt  time.Time
	tripReason string
}

// NewGateway constructs a gateway. remote may be nil when the remote store is disabled.
func NewGateway(remote *PostgresStore, cache KeyValueStore, cfg GatewayConfig, logger *zap.Logger, observer GatewayObserver) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.RemoteRetries < 0 {
		cfg.RemoteRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 5 * time.Second
	}
	return &Gateway{remote: remote, cache: cache, cfg: cfg, logger: logger, observer: observer}
}

// RemoteUsable reports whether calls should still try the remote store.
func (g *Gateway) RemoteUsable() bool {
	return g.cfg.RemoteEnabled && !g.open.Load()
}

// BreakerOpen reports whether the circuit breaker has tripped.
func (g *Gateway) BreakerOpen() bool {
	return g.open.Load()
}

// Status returns the current gateway state.
func (g *Gateway) Status() GatewayStatus {
	status := GatewayStatus{RemoteEnabled: g.cfg.RemoteEnabled, BreakerOpen: g.open.Load()}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.trippedAt.IsZero() {
		at := g.trippedAt
		status.TrippedAt = &at
		status.TripReason = g.tripReason
	}
	return status
}

// attemptRemote runs fn against the remote store. Network-class failures are retried
// with exponential backoff up to RemoteRetries times, each attempt bounded by
// RemoteTimeout. Failures are classified and may trip the breaker. Domain errors
// (*errors.Error) raised inside fn are returned untouched and never recorded.
func (g *Gateway) attemptRemote(ctx context.Context, collection, operation string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = g.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if isDomainError(err) {
			return err
		}
		if !ClassifyRemoteError(err).Retryable() || attempt >= g.cfg.RemoteRetries || ctx.Err() != nil {
			break
		}
		if waitErr := sleepContext(ctx, g.cfg.RetryBackoff<<attempt); waitErr != nil {
			break
		}
	}
	g.recordFailure(collection, operation, err)
	return err
}

func (g *Gateway) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.RemoteTimeout)
	defer cancel()
	return fn(callCtx)
}

func (g *Gateway) recordFailure(collection, operation string, err error) {
	class := ClassifyRemoteError(err)
	g.observer.ObserveRemoteFailure(collection, operation, string(class))

	fields := []zap.Field{
		zap.String("collection", collection),
		zap.String("operation", operation),
		zap.String("class", string(class)),
		zap.Error(err),
	}
	if class.TripsBreaker() && g.open.CompareAndSwap(false, true) {
		g.mu.Lock()
		g.trippedAt = time.Now().UTC()
		g.tripReason = string(class)
		g.mu.Unlock()
		g.observer.SetBreakerOpen(true)
		g.logger.Error("remote store circuit breaker opened, fallback cache serves the rest of the session", fields...)
		return
	}
	g.logger.Warn("remote store call failed, using fallback cache", fields...)
}

// writeCache times a cache write and wraps infrastructure failures; those are the only
// persistence errors callers ever see.
func (g *Gateway) writeCache(collection string, fn func() error) error {
	start := time.Now()
	err := fn()
	g.observer.ObserveCacheWrite(collection, time.Since(start))
	if err == nil || isDomainError(err) {
		return err
	}
	g.logger.Error("fallback cache write failed", zap.String("collection", collection), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrCacheWrite.Code, appErrors.ErrCacheWrite.Status, appErrors.ErrCacheWrite.Message)
}

func (g *Gateway) mirror(collection, operation string, fn func() error) {
	if err := fn(); err != nil {
		g.logger.Warn("failed to mirror remote state into fallback cache",
			zap.String("collection", collection),
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}

// CommitPlan describes a change spanning several collections that must land together.
type CommitPlan struct {
	Name string
	// Keys lists every cache key Local and Mirror touch.
	Keys []string
	// Remote applies the change inside one SQL transaction.
	Remote func(ctx context.Context, tx *sqlx.Tx) error
	// Local applies the change to the cache when the remote store is unusable.
	Local func(tx KeyValueTx) error
	// Mirror copies a committed remote change into the cache. Optional.
	Mirror func(tx KeyValueTx) error
}

// Commit applies plan atomically on whichever backend serves the call. Domain errors
// from either side (stale state, not found) are returned as-is and never fall back.
func (g *Gateway) Commit(ctx context.Context, plan CommitPlan) error {
	if g.RemoteUsable() && g.remote != nil && plan.Remote != nil {
		err := g.attemptRemote(ctx, plan.Name, "commit", func(ctx context.Context) error {
			return g.remote.WithTx(ctx, func(tx *sqlx.Tx) error {
				return plan.Remote(ctx, tx)
			})
		})
		if err == nil {
			if plan.Mirror != nil {
				g.mirror(plan.Name, "commit", func() error {
					return g.cache.Update(ctx, plan.Keys, plan.Mirror)
				})
			}
			return nil
		}
		if isDomainError(err) {
			return err
		}
	}
	return g.writeCache(plan.Name, func() error {
		return g.cache.Update(ctx, plan.Keys, plan.Local)
	})
}

func isDomainError(err error) bool {
	var appErr *appErrors.Error
	return errors.As(err, &appErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Collection gives one entity collection the FetchAll / Upsert / Delete contract
// with the gateway's fallback behaviour.
type Collection[T any] struct {
	gw         *Gateway
	name       string
	remote     Adapter[T]
	cache      *CacheAdapter[T]
	key        func(T) string
	cacheFirst bool
}

// NewCollection composes a remote and a cache adapter. remote may be nil.
func NewCollection[T any](gw *Gateway, name string, remote Adapter[T], cache *CacheAdapter[T], key func(T) string) *Collection[T] {
	return &Collection[T]{gw: gw, name: name, remote: remote, cache: cache, key: key}
}

// CacheFirst makes the cache authoritative-first: writes land locally before any
// remote attempt, and reads append local-only entries to the remote list.
func (c *Collection[T]) CacheFirst() *Collection[T] {
	c.cacheFirst = true
	return c
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// CacheKey returns the fallback cache key of the collection.
func (c *Collection[T]) CacheKey() string {
	return c.cache.Key()
}

// PendingKey returns the cache key listing entries the remote store has not
// accepted yet, or "" when the collection has no remote side to reconcile with.
func (c *Collection[T]) PendingKey() string {
	if c.remote == nil || c.cacheFirst {
		return ""
	}
	return c.cache.PendingKey()
}

func (c *Collection[T]) remoteUsable() bool {
	return c.remote != nil && c.gw.RemoteUsable()
}

// FetchAll returns the whole collection. For cache-first collections the remote list is
// merged with local-only entries by key, so repeated reads can only grow the result.
// Other collections lay entries still pending in the cache over the remote list, so a
// write absorbed by the cache is never lost to a later remote read.
func (c *Collection[T]) FetchAll(ctx context.Context) ([]T, error) {
	if !c.remoteUsable() {
		return c.cache.FetchAll(ctx)
	}

	var items []T
	err := c.gw.attemptRemote(ctx, c.name, "fetch", func(ctx context.Context) error {
		fetched, err := c.remote.FetchAll(ctx)
		items = fetched
		return err
	})
	if err != nil {
		return c.cache.FetchAll(ctx)
	}
	if items == nil {
		items = []T{}
	}

	if !c.cacheFirst {
		reconciled, err := c.cache.reconcile(ctx, items)
		if err != nil {
			c.gw.logger.Warn("failed to reconcile remote read with fallback cache", zap.String("collection", c.name), zap.Error(err))
			return items, nil
		}
		return reconciled, nil
	}

	local, err := c.cache.FetchAll(ctx)
	if err != nil {
		c.gw.logger.Warn("failed to read local entries for merge", zap.String("collection", c.name), zap.Error(err))
	} else {
		items = mergeByKey(items, local, c.key)
	}
	c.gw.mirror(c.name, "fetch", func() error {
		return c.cache.Replace(ctx, items)
	})
	return items, nil
}

// UpsertOne inserts or replaces one entity by key.
func (c *Collection[T]) UpsertOne(ctx context.Context, item T) error {
	return c.UpsertMany(ctx, []T{item})
}

// UpsertMany inserts or replaces entities by key. Remote failures are absorbed by the
// cache; only a failed cache write is returned.
func (c *Collection[T]) UpsertMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = c.key(item)
	}
	apply := func(current []T) []T { return upsertByKey(current, items, c.key) }
	return c.write(ctx, "upsert", ids, false, apply, func(ctx context.Context) error {
		return c.remote.Upsert(ctx, items)
	})
}

// DeleteOne removes an entity by key.
func (c *Collection[T]) DeleteOne(ctx context.Context, id string) error {
	apply := func(current []T) []T { return removeByKey(current, id, c.key) }
	return c.write(ctx, "delete", []string{id}, true, apply, func(ctx context.Context) error {
		return c.remote.Delete(ctx, id)
	})
}

func (c *Collection[T]) write(ctx context.Context, operation string, ids []string, deleted bool, apply func([]T) []T, remote func(ctx context.Context) error) error {
	if c.cacheFirst {
		if err := c.gw.writeCache(c.name, func() error { return c.cache.apply(ctx, apply, nil) }); err != nil {
			return err
		}
		if c.remoteUsable() {
			_ = c.gw.attemptRemote(ctx, c.name, operation, remote)
		}
		return nil
	}

	tracked := c.PendingKey() != ""
	if c.remoteUsable() {
		if err := c.gw.attemptRemote(ctx, c.name, operation, remote); err == nil {
			c.gw.mirror(c.name, operation, func() error {
				return c.cache.apply(ctx, apply, settlePending(ids))
			})
			return nil
		}
	}
	var edit func(pendingSet)
	if tracked {
		edit = markPending(ids, deleted)
	}
	return c.gw.writeCache(c.name, func() error { return c.cache.apply(ctx, apply, edit) })
}
