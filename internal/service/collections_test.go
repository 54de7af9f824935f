package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
)

// memoryCollections builds cache-only collections backed by an in-process store.
func memoryCollections(t *testing.T) *repository.Collections {
	t.Helper()
	cache := repository.NewMemoryStore()
	gw := repository.NewGateway(nil, cache, repository.GatewayConfig{}, nil, nil)
	return repository.NewCollections(gw, nil, cache, "test:")
}

func seedStudents(t *testing.T, c *repository.Collections, students ...models.Student) {
	t.Helper()
	require.NoError(t, c.Students.UpsertMany(context.Background(), students))
}

func seedStaff(t *testing.T, c *repository.Collections, staff ...models.StaffProfile) {
	t.Helper()
	require.NoError(t, c.Staff.UpsertMany(context.Background(), staff))
}

func seedParents(t *testing.T, c *repository.Collections, parents ...models.ParentProfile) {
	t.Helper()
	require.NoError(t, c.Parents.UpsertMany(context.Background(), parents))
}

func studentsByID(t *testing.T, c *repository.Collections) map[string]models.Student {
	t.Helper()
	students, err := c.Students.FetchAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]models.Student, len(students))
	for _, s := range students {
		out[s.ID] = s
	}
	return out
}

func parentsByID(t *testing.T, c *repository.Collections) map[string]models.ParentProfile {
	t.Helper()
	parents, err := c.Parents.FetchAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]models.ParentProfile, len(parents))
	for _, p := range parents {
		out[p.ID] = p
	}
	return out
}
