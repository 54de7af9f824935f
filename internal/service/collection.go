package service

import "context"

// collection is the persistence contract every entity service depends on.
// repository.Collection satisfies it.
type collection[T any] interface {
	FetchAll(ctx context.Context) ([]T, error)
	UpsertOne(ctx context.Context, item T) error
	UpsertMany(ctx context.Context, items []T) error
	DeleteOne(ctx context.Context, id string) error
}
