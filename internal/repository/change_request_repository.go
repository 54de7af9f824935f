package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

const (
	transitionChangeRequestQuery = `UPDATE change_requests
SET status = $1, version = $2, first_reviewed_by = $3, first_reviewed_at = $4, executed_by = $5, executed_at = $6, updated_at = $7
WHERE id = $8 AND status = $9 AND version = $10`
	changeRequestExistsQuery = `SELECT EXISTS(SELECT 1 FROM change_requests WHERE id = $1)`
)

// ChangeRequestRepository persists change requests and guards their transitions with
// compare-and-set on status and version.
type ChangeRequestRepository struct {
	collections *Collections
	now         func() time.Time
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(collections *Collections) *ChangeRequestRepository {
	return &ChangeRequestRepository{collections: collections, now: time.Now}
}

// Create stores a new request in pending_admin2 with version 1.
func (r *ChangeRequestRepository) Create(ctx context.Context, req *models.ChangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := r.now().UTC()
	req.Status = models.ChangeRequestPendingAdmin2
	req.Version = 1
	req.FirstReviewedBy, req.FirstReviewedAt = nil, nil
	req.ExecutedBy, req.ExecutedAt = nil, nil
	req.CreatedAt = now
	req.UpdatedAt = now
	return r.collections.ChangeRequests.UpsertOne(ctx, *req)
}

// FindByID returns the request with the given id.
func (r *ChangeRequestRepository) FindByID(ctx context.Context, id string) (*models.ChangeRequest, error) {
	requests, err := r.collections.ChangeRequests.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	idx, ok := findByKey(requests, id, changeRequestKey)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
	}
	req := requests[idx]
	return &req, nil
}

// List returns requests matching filter, newest first.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error) {
	requests, err := r.collections.ChangeRequests.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make(map[models.ChangeRequestStatus]struct{}, len(filter.Status))
	for _, status := range filter.Status {
		statuses[status] = struct{}{}
	}
	result := make([]models.ChangeRequest, 0, len(requests))
	for _, req := range requests {
		if filter.StudentID != "" && req.StudentID != filter.StudentID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[req.Status]; !ok {
				continue
			}
		}
		result = append(result, req)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Transition replaces the stored request with next, provided the stored copy still
// carries prev's status and version. A non-nil patch is applied in the same commit to
// the student as stored at that moment, touching only the patched attribute, and the
// patched student is returned. A lost race yields ErrStaleState; a student removed
// since the caller read it yields ErrStudentNotFound and nothing is written.
func (r *ChangeRequestRepository) Transition(ctx context.Context, prev, next models.ChangeRequest, patch *models.StudentPatch) (*models.Student, error) {
	requests := r.collections.ChangeRequests
	students := r.collections.Students
	requestsKey := requests.CacheKey()
	studentsKey := students.CacheKey()
	requestsPending := requests.PendingKey()
	studentsPending := ""

	keys := []string{requestsKey}
	if requestsPending != "" {
		keys = append(keys, requestsPending)
	}
	var touched []string
	if patch != nil {
		studentsPending = students.PendingKey()
		touched = []string{patch.StudentID}
		keys = append(keys, studentsKey)
		if studentsPending != "" {
			keys = append(keys, studentsPending)
		}
	}

	var patched *models.Student
	err := r.collections.Gateway.Commit(ctx, CommitPlan{
		Name: CollectionChangeRequests,
		Keys: keys,
		Remote: func(ctx context.Context, tx *sqlx.Tx) error {
			patched = nil
			if err := transitionRemote(ctx, tx, prev, next); err != nil {
				return err
			}
			if patch == nil {
				return nil
			}
			student, err := patchStudentRemote(ctx, tx, *patch)
			if err != nil {
				return err
			}
			patched = student
			return nil
		},
		Local: func(tx KeyValueTx) error {
			patched = nil
			stored, err := loadList[models.ChangeRequest](tx, requestsKey)
			if err != nil {
				return err
			}
			idx, ok := findByKey(stored, prev.ID, changeRequestKey)
			if !ok {
				return appErrors.Clone(appErrors.ErrNotFound, "change request not found")
			}
			if stored[idx].Status != prev.Status || stored[idx].Version != prev.Version {
				return staleStateError(prev.ID)
			}
			if patch != nil {
				student, err := patchStudentLocal(tx, studentsKey, *patch)
				if err != nil {
					return err
				}
				patched = student
			}
			stored[idx] = next
			if err := tx.Set(requestsKey, stored); err != nil {
				return err
			}
			if err := updatePending(tx, requestsPending, markPending([]string{next.ID}, false)); err != nil {
				return err
			}
			return updatePending(tx, studentsPending, markPending(touched, false))
		},
		Mirror: func(tx KeyValueTx) error {
			stored, err := loadList[models.ChangeRequest](tx, requestsKey)
			if err != nil {
				return err
			}
			if err := tx.Set(requestsKey, upsertByKey(stored, []models.ChangeRequest{next}, changeRequestKey)); err != nil {
				return err
			}
			if err := updatePending(tx, requestsPending, settlePending([]string{next.ID})); err != nil {
				return err
			}
			if patched == nil {
				return nil
			}
			cached, err := loadList[models.Student](tx, studentsKey)
			if err != nil {
				return err
			}
			if err := tx.Set(studentsKey, upsertByKey(cached, []models.Student{*patched}, studentKey)); err != nil {
				return err
			}
			return updatePending(tx, studentsPending, settlePending(touched))
		},
	})
	if err != nil {
		return nil, err
	}
	return patched, nil
}

func transitionRemote(ctx context.Context, tx *sqlx.Tx, prev, next models.ChangeRequest) error {
	result, err := tx.ExecContext(ctx, transitionChangeRequestQuery,
		string(next.Status), next.Version,
		next.FirstReviewedBy, next.FirstReviewedAt,
		next.ExecutedBy, next.ExecutedAt,
		next.UpdatedAt,
		prev.ID, string(prev.Status), prev.Version,
	)
	if err != nil {
		return fmt.Errorf("transition change request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition change request rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists, changeRequestExistsQuery, prev.ID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup change request: %w", err)
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "change request not found")
	}
	return staleStateError(prev.ID)
}

// studentAttributeColumns maps patchable attributes to their remote columns.
var studentAttributeColumns = map[models.StudentAttribute]string{
	models.AttributeName:    "name",
	models.AttributeContact: "contact_number",
	models.AttributeAddress: "address",
	models.AttributeDOB:     "dob",
}

func patchStudentRemote(ctx context.Context, tx *sqlx.Tx, patch models.StudentPatch) (*models.Student, error) {
	column, ok := studentAttributeColumns[patch.Attribute]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("student attribute %q has no column", patch.Attribute))
	}
	query := fmt.Sprintf("UPDATE students SET %s = $1 WHERE id = $2 RETURNING %s", column, strings.Join(studentTable.columns, ", "))
	var row studentRow
	if err := tx.GetContext(ctx, &row, query, patch.Value, patch.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, studentNotFoundError(patch.StudentID)
		}
		return nil, fmt.Errorf("patch student: %w", err)
	}
	student, err := studentTable.fromRow(row)
	if err != nil {
		return nil, fmt.Errorf("decode students row: %w", err)
	}
	return &student, nil
}

func patchStudentLocal(tx KeyValueTx, key string, patch models.StudentPatch) (*models.Student, error) {
	students, err := loadList[models.Student](tx, key)
	if err != nil {
		return nil, err
	}
	idx, ok := findByKey(students, patch.StudentID, studentKey)
	if !ok {
		return nil, studentNotFoundError(patch.StudentID)
	}
	patch.Attribute.Set(&students[idx], patch.Value)
	if err := tx.Set(key, students); err != nil {
		return nil, err
	}
	student := students[idx]
	return &student, nil
}

func studentNotFoundError(id string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("student %s not found", id))
}

func staleStateError(id string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrStaleState, fmt.Sprintf("change request %s was modified concurrently", id))
}
