package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// RedisStore persists the fallback cache in Redis without expiry.
type RedisStore struct {
	client       *redis.Client
	logger       *zap.Logger
	maxTxRetries int
}

// NewRedisStore constructs a Redis backed KeyValueStore.
func NewRedisStore(client *redis.Client, maxTxRetries int, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxTxRetries <= 0 {
		maxTxRetries = 5
	}
	return &RedisStore{client: client, logger: logger, maxTxRetries: maxTxRetries}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it without TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Update watches keys, runs fn and commits its writes in one MULTI/EXEC.
// A concurrent write to a watched key re-runs fn; after maxTxRetries the caller gets ErrStaleState.
func (s *RedisStore) Update(ctx context.Context, keys []string, fn func(tx KeyValueTx) error) error {
	for attempt := 1; attempt <= s.maxTxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			view := &redisTx{ctx: ctx, tx: rtx, writes: make(map[string][]byte)}
			if err := fn(view); err != nil {
				return err
			}
			if len(view.writes) == 0 {
				return nil
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for key, payload := range view.writes {
					pipe.Set(ctx, key, payload, 0)
				}
				return nil
			})
			return err
		}, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("cache transaction raced, retrying", zap.Strings("keys", keys), zap.Int("attempt", attempt))
			continue
		}
		return err
	}
	return appErrors.Clone(appErrors.ErrStaleState, "cache keys kept changing during update")
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisTx struct {
	ctx    context.Context
	tx     *redis.Tx
	writes map[string][]byte
}

func (t *redisTx) Get(key string, dest interface{}) error {
	raw, ok := t.writes[key]
	if !ok {
		var err error
		raw, err = t.tx.Get(t.ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return appErrors.ErrCacheMiss
			}
			return fmt.Errorf("redis get %s: %w", key, err)
		}
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (t *redisTx) Set(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	t.writes[key] = payload
	return nil
}
