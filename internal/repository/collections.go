package repository

import (
	"github.com/noah-isme/campus-records-api/internal/models"
)

// Collection names double as cache key suffixes and metric labels.
const (
	CollectionStudents       = "students"
	CollectionStaff          = "staff"
	CollectionParents        = "parents"
	CollectionDepartments    = "departments"
	CollectionSubjects       = "subjects"
	CollectionChangeRequests = "change_requests"
)

// Collections wires every entity collection to one shared gateway.
type Collections struct {
	Gateway        *Gateway
	Students       *Collection[models.Student]
	Staff          *Collection[models.StaffProfile]
	Parents        *Collection[models.ParentProfile]
	Departments    *Collection[models.Department]
	Subjects       *Collection[models.Subject]
	ChangeRequests *Collection[models.ChangeRequest]

	remote *PostgresStore
	cache  KeyValueStore
}

// NewCollections builds the collections. remote may be nil; keyPrefix namespaces the
// cache keys, e.g. "campus:" yields "campus:students".
func NewCollections(gw *Gateway, remote *PostgresStore, cache KeyValueStore, keyPrefix string) *Collections {
	key := func(name string) string { return keyPrefix + name }

	return &Collections{
		Gateway: gw,
		Students: NewCollection(gw, CollectionStudents, remoteFor(remote, studentTable),
			NewCacheAdapter(cache, key(CollectionStudents), studentKey), studentKey),
		Staff: NewCollection(gw, CollectionStaff, remoteFor(remote, staffTable),
			NewCacheAdapter(cache, key(CollectionStaff), staffKey), staffKey),
		Parents: NewCollection(gw, CollectionParents, remoteFor(remote, parentTable),
			NewCacheAdapter(cache, key(CollectionParents), parentKey), parentKey),
		Departments: NewCollection(gw, CollectionDepartments, remoteFor(remote, departmentTable),
			NewCacheAdapter(cache, key(CollectionDepartments), departmentKey), departmentKey),
		Subjects: NewCollection(gw, CollectionSubjects, remoteFor(remote, subjectTable),
			NewCacheAdapter(cache, key(CollectionSubjects), subjectKey), subjectKey).CacheFirst(),
		ChangeRequests: NewCollection(gw, CollectionChangeRequests, remoteFor(remote, changeRequestTable),
			NewCacheAdapter(cache, key(CollectionChangeRequests), changeRequestKey), changeRequestKey),
		remote: remote,
		cache:  cache,
	}
}

func remoteFor[T any, R any](store *PostgresStore, t table[T, R]) Adapter[T] {
	if store == nil {
		return nil
	}
	return newRemoteAdapter(store, t)
}
