package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/models"
	"github.com/noah-isme/campus-records-api/internal/repository"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type recordedTransition struct {
	from models.ChangeRequestStatus
	to   models.ChangeRequestStatus
}

type workflowMetricsStub struct {
	transitions []recordedTransition
}

func (m *workflowMetricsStub) ObserveWorkflowTransition(from, to models.ChangeRequestStatus) {
	m.transitions = append(m.transitions, recordedTransition{from: from, to: to})
}

type workflowFixture struct {
	svc         *ChangeRequestService
	repo        *repository.ChangeRequestRepository
	collections *repository.Collections
	metrics     *workflowMetricsStub
}

func newWorkflowFixture(t *testing.T, students ...models.Student) *workflowFixture {
	t.Helper()
	cache := repository.NewMemoryStore()
	gw := repository.NewGateway(nil, cache, repository.GatewayConfig{}, nil, nil)
	collections := repository.NewCollections(gw, nil, cache, "test:")
	if len(students) > 0 {
		require.NoError(t, collections.Students.UpsertMany(context.Background(), students))
	}
	repo := repository.NewChangeRequestRepository(collections)
	metrics := &workflowMetricsStub{}
	return &workflowFixture{
		svc:         NewChangeRequestService(repo, collections.Students, nil, metrics, zap.NewNop()),
		repo:        repo,
		collections: collections,
		metrics:     metrics,
	}
}

func (f *workflowFixture) student(t *testing.T, id string) models.Student {
	t.Helper()
	students, err := f.collections.Students.FetchAll(context.Background())
	require.NoError(t, err)
	for _, s := range students {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("student %s not found", id)
	return models.Student{}
}

func seedRequest(t *testing.T, f *workflowFixture, req models.ChangeRequest) {
	t.Helper()
	require.NoError(t, f.collections.ChangeRequests.UpsertOne(context.Background(), req))
}

func sampleStudent() models.Student {
	return models.Student{
		ID:            "S1",
		Email:         "asha@campus.edu",
		Name:          "Asha Rao",
		ContactNumber: "555-0101",
		Address:       "12 Hill Rd",
		DOB:           "2003-04-05",
		Department:    "CSE",
		Backlogs:      []string{},
	}
}

func TestSubmitStartsInPendingAdmin2(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()

	for _, field := range []string{models.ChangeFieldName, models.ChangeFieldContact, models.ChangeFieldAddress, models.ChangeFieldDOB} {
		req, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: field, NewValue: "x", Reason: "typo"})
		require.NoError(t, err)
		assert.Equal(t, models.ChangeRequestPendingAdmin2, req.Status)
		assert.Equal(t, 1, req.Version)
		assert.Equal(t, "Asha Rao", req.StudentName)
	}

	_, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: models.ChangeFieldName, NewValue: "x"})
	require.NoError(t, err)
	list, err := f.repo.List(ctx, models.ChangeRequestFilter{StudentID: "S1"})
	require.NoError(t, err)
	assert.Len(t, list, 5)

	unknown, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S404", Field: models.ChangeFieldDOB, NewValue: "2000-01-01"})
	require.NoError(t, err)
	assert.Empty(t, unknown.StudentName)
}

func TestSubmitRejectsUnknownField(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	_, err := f.svc.Submit(context.Background(), dto.SubmitChangeRequest{StudentID: "S1", Field: "Email", NewValue: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRejectedRequestIsTerminal(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: models.ChangeFieldName, NewValue: "New"})
	require.NoError(t, err)

	rejected, err := f.svc.FirstTierReview(ctx, req.ID, false, "admin2")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestRejected, rejected.Status)
	require.NotNil(t, rejected.FirstReviewedBy)
	assert.Equal(t, "admin2", *rejected.FirstReviewedBy)

	_, err = f.svc.FirstTierReview(ctx, req.ID, true, "admin2")
	assertStateError(t, err, models.ChangeRequestPendingAdmin2, models.ChangeRequestRejected)
	_, err = f.svc.SecondTierExecute(ctx, req.ID, "admin1")
	assertStateError(t, err, models.ChangeRequestPendingAdmin1, models.ChangeRequestRejected)

	stored, err := f.repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestRejected, stored.Status)
	assert.Equal(t, "Asha Rao", f.student(t, "S1").Name)
	assert.Equal(t, []recordedTransition{{from: models.ChangeRequestPendingAdmin2, to: models.ChangeRequestRejected}}, f.metrics.transitions)
}

func TestExecuteOutsidePendingAdmin1LeavesEverythingUnchanged(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: models.ChangeFieldAddress, NewValue: "99 Lake St"})
	require.NoError(t, err)
	before := f.student(t, "S1")

	_, err = f.svc.SecondTierExecute(ctx, req.ID, "admin1")
	assertStateError(t, err, models.ChangeRequestPendingAdmin1, models.ChangeRequestPendingAdmin2)

	stored, err := f.repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, *req, *stored)
	assert.Equal(t, before, f.student(t, "S1"))
}

func TestExecuteContactNumberUpdatesOnlyContact(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	seedRequest(t, f, models.ChangeRequest{
		ID:        "cr-1",
		StudentID: "S1",
		Field:     "Contact Number",
		NewValue:  "555-9999",
		Status:    models.ChangeRequestPendingAdmin1,
		Version:   2,
	})
	before := f.student(t, "S1")

	result, err := f.svc.SecondTierExecute(ctx, "cr-1", "admin1")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.True(t, result.StudentUpdated)
	assert.Equal(t, models.ChangeRequestApproved, result.Request.Status)
	assert.Equal(t, 3, result.Request.Version)
	require.NotNil(t, result.Request.ExecutedBy)
	assert.Equal(t, "admin1", *result.Request.ExecutedBy)

	after := f.student(t, "S1")
	expected := before
	expected.ContactNumber = "555-9999"
	assert.Equal(t, expected, after)

	stored, err := f.repo.FindByID(ctx, "cr-1")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestApproved, stored.Status)
}

func TestExecuteFullWorkflowAppliesName(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: models.ChangeFieldName, NewValue: "Asha R. Menon"})
	require.NoError(t, err)

	reviewed, err := f.svc.FirstTierReview(ctx, req.ID, true, "admin2")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestPendingAdmin1, reviewed.Status)

	result, err := f.svc.SecondTierExecute(ctx, req.ID, "admin1")
	require.NoError(t, err)
	assert.Equal(t, "Asha R. Menon", f.student(t, "S1").Name)
	assert.Equal(t, models.ChangeRequestApproved, result.Request.Status)

	_, err = f.svc.SecondTierExecute(ctx, req.ID, "admin1")
	assertStateError(t, err, models.ChangeRequestPendingAdmin1, models.ChangeRequestApproved)
}

func TestExecuteUnmatchedFieldApprovesWithoutMutation(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	seedRequest(t, f, models.ChangeRequest{ID: "cr-2", StudentID: "S1", Field: "Blood Group", NewValue: "O+", Status: models.ChangeRequestPendingAdmin1, Version: 2})
	before := f.student(t, "S1")

	result, err := f.svc.SecondTierExecute(context.Background(), "cr-2", "admin1")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.False(t, result.StudentUpdated)
	assert.Equal(t, models.ChangeRequestApproved, result.Request.Status)
	assert.Equal(t, before, f.student(t, "S1"))
}

func TestExecuteMissingStudentIsNoop(t *testing.T) {
	f := newWorkflowFixture(t)
	seedRequest(t, f, models.ChangeRequest{ID: "cr-3", StudentID: "S9", Field: models.ChangeFieldName, NewValue: "Ghost", Status: models.ChangeRequestPendingAdmin1, Version: 2})

	result, err := f.svc.SecondTierExecute(context.Background(), "cr-3", "admin1")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, models.ChangeRequestPendingAdmin1, result.Request.Status)

	stored, err := f.repo.FindByID(context.Background(), "cr-3")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestPendingAdmin1, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.Empty(t, f.metrics.transitions)
}

type staleReadStore struct {
	*repository.ChangeRequestRepository
	snapshot models.ChangeRequest
}

func (s staleReadStore) FindByID(context.Context, string) (*models.ChangeRequest, error) {
	copied := s.snapshot
	return &copied, nil
}

func TestConcurrentReviewerLosesWithStaleState(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: models.ChangeFieldName, NewValue: "New"})
	require.NoError(t, err)

	slow := NewChangeRequestService(staleReadStore{ChangeRequestRepository: f.repo, snapshot: *req}, f.collections.Students, nil, nil, nil)

	_, err = f.svc.FirstTierReview(ctx, req.ID, true, "admin2-a")
	require.NoError(t, err)

	_, err = slow.FirstTierReview(ctx, req.ID, false, "admin2-b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStaleState))

	stored, err := f.repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestPendingAdmin1, stored.Status)
	assert.Equal(t, "admin2-a", *stored.FirstReviewedBy)
}

func TestExecuteRevalidatesAfterConcurrentRejection(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	seedRequest(t, f, models.ChangeRequest{ID: "cr-4", StudentID: "S1", Field: models.ChangeFieldName, NewValue: "Late", Status: models.ChangeRequestPendingAdmin1, Version: 2})
	snapshot, err := f.repo.FindByID(ctx, "cr-4")
	require.NoError(t, err)

	rejected := *snapshot
	rejected.Status = models.ChangeRequestRejected
	rejected.Version = 3
	_, err = f.repo.Transition(ctx, *snapshot, rejected, nil)
	require.NoError(t, err)

	slow := NewChangeRequestService(staleReadStore{ChangeRequestRepository: f.repo, snapshot: *snapshot}, f.collections.Students, nil, nil, nil)
	_, err = slow.SecondTierExecute(ctx, "cr-4", "admin1")
	assert.True(t, errors.Is(err, appErrors.ErrStaleState))
	assert.Equal(t, "Asha Rao", f.student(t, "S1").Name)
}

// interleavingStore runs a competing write between the service's reads and its
// transition.
type interleavingStore struct {
	*repository.ChangeRequestRepository
	before func()
}

func (s interleavingStore) Transition(ctx context.Context, prev, next models.ChangeRequest, patch *models.StudentPatch) (*models.Student, error) {
	s.before()
	return s.ChangeRequestRepository.Transition(ctx, prev, next, patch)
}

func TestExecuteKeepsConcurrentStudentEdits(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	seedRequest(t, f, models.ChangeRequest{ID: "cr-5", StudentID: "S1", Field: "Contact Number", NewValue: "555-9999", Status: models.ChangeRequestPendingAdmin1, Version: 2})

	store := interleavingStore{ChangeRequestRepository: f.repo, before: func() {
		student := f.student(t, "S1")
		student.RecordAttendance(models.AttendanceEntry{Date: "2024-03-01", SubjectCode: "CS101", Present: true})
		require.NoError(t, f.collections.Students.UpsertOne(ctx, student))
	}}
	svc := NewChangeRequestService(store, f.collections.Students, nil, nil, nil)

	result, err := svc.SecondTierExecute(ctx, "cr-5", "admin1")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	require.NotNil(t, result.Student)
	assert.Len(t, result.Student.Attendance, 1)

	after := f.student(t, "S1")
	assert.Equal(t, "555-9999", after.ContactNumber)
	require.Len(t, after.Attendance, 1)
	assert.Equal(t, "CS101", after.Attendance[0].SubjectCode)
	assert.Equal(t, 100, after.AttendancePercentage)
}

func TestExecuteSkipsStudentDeletedMidway(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	seedRequest(t, f, models.ChangeRequest{ID: "cr-6", StudentID: "S1", Field: models.ChangeFieldAddress, NewValue: "7 Lake Rd", Status: models.ChangeRequestPendingAdmin1, Version: 2})

	store := interleavingStore{ChangeRequestRepository: f.repo, before: func() {
		require.NoError(t, f.collections.Students.DeleteOne(ctx, "S1"))
	}}
	svc := NewChangeRequestService(store, f.collections.Students, nil, f.metrics, nil)

	result, err := svc.SecondTierExecute(ctx, "cr-6", "admin1")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, models.ChangeRequestPendingAdmin1, result.Request.Status)

	students, err := f.collections.Students.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, students)

	stored, err := f.repo.FindByID(ctx, "cr-6")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeRequestPendingAdmin1, stored.Status)
	assert.Equal(t, 2, stored.Version)
	assert.Empty(t, f.metrics.transitions)
}

func TestListScopesStudentsToOwnRequests(t *testing.T) {
	f := newWorkflowFixture(t, sampleStudent())
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S1", Field: models.ChangeFieldName, NewValue: "a"})
	require.NoError(t, err)
	other, err := f.svc.Submit(ctx, dto.SubmitChangeRequest{StudentID: "S2", Field: models.ChangeFieldName, NewValue: "b"})
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, dto.ChangeRequestQuery{StudentID: "S2"}, &models.JWTClaims{UserID: "S1", Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "S1", mine[0].StudentID)

	all, err := f.svc.List(ctx, dto.ChangeRequestQuery{}, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin2})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.List(ctx, dto.ChangeRequestQuery{}, &models.JWTClaims{UserID: "P1", Role: models.RoleParent})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Get(ctx, other.ID, &models.JWTClaims{UserID: "S1", Role: models.RoleStudent})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestApplyChangeMatchesBySubstring(t *testing.T) {
	cases := []struct {
		field string
		check func(models.Student) string
	}{
		{"full name", func(s models.Student) string { return s.Name }},
		{"CONTACT", func(s models.Student) string { return s.ContactNumber }},
		{"Home Address", func(s models.Student) string { return s.Address }},
		{"dob", func(s models.Student) string { return s.DOB }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			student := sampleStudent()
			assert.True(t, ApplyChange(&student, tc.field, "v"))
			assert.Equal(t, "v", tc.check(student))
		})
	}

	student := sampleStudent()
	assert.False(t, ApplyChange(&student, "email", "v"))
	assert.Equal(t, sampleStudent(), student)
}

func assertStateError(t *testing.T, err error, expected, actual models.ChangeRequestStatus) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	var stateErr *appErrors.StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, string(expected), stateErr.Expected)
	assert.Equal(t, string(actual), stateErr.Actual)
}
