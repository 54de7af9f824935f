package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Adapter is the uniform contract both backends expose for one entity collection.
type Adapter[T any] interface {
	FetchAll(ctx context.Context) ([]T, error)
	Upsert(ctx context.Context, items []T) error
	Delete(ctx context.Context, id string) error
}

// PostgresStore wraps the remote relational store connection.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore constructs the store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// WithTx runs fn inside one transaction, rolling back when fn fails.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// RemoteAdapter exposes one table of the remote store as an Adapter.
type RemoteAdapter[T any, R any] struct {
	store *PostgresStore
	table table[T, R]
}

func newRemoteAdapter[T any, R any](store *PostgresStore, t table[T, R]) *RemoteAdapter[T, R] {
	return &RemoteAdapter[T, R]{store: store, table: t}
}

// FetchAll implements Adapter.
func (a *RemoteAdapter[T, R]) FetchAll(ctx context.Context) ([]T, error) {
	return a.table.selectAll(ctx, a.store.db)
}

// Upsert implements Adapter. Several items are written in a single transaction.
func (a *RemoteAdapter[T, R]) Upsert(ctx context.Context, items []T) error {
	if len(items) == 1 {
		return a.table.upsert(ctx, a.store.db, items)
	}
	return a.store.WithTx(ctx, func(tx *sqlx.Tx) error {
		return a.table.upsert(ctx, tx, items)
	})
}

// Delete implements Adapter.
func (a *RemoteAdapter[T, R]) Delete(ctx context.Context, id string) error {
	return a.table.remove(ctx, a.store.db, id)
}
