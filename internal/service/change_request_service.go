package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type changeRequestStore interface {
	Create(ctx context.Context, req *models.ChangeRequest) error
	FindByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, error)
	Transition(ctx context.Context, prev, next models.ChangeRequest, patch *models.StudentPatch) (*models.Student, error)
}

type studentReader interface {
	FetchAll(ctx context.Context) ([]models.Student, error)
}

type workflowRecorder interface {
	ObserveWorkflowTransition(from, to models.ChangeRequestStatus)
}

// ChangeRequestService runs the two-tier review of student record changes:
// pending_admin2 -> pending_admin1 | rejected, then pending_admin1 -> approved.
type ChangeRequestService struct {
	repo      changeRequestStore
	students  studentReader
	validator *validator.Validate
	metrics   workflowRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewChangeRequestService constructs the workflow service. metrics may be nil.
func NewChangeRequestService(repo changeRequestStore, students studentReader, validate *validator.Validate, metrics workflowRecorder, logger *zap.Logger) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChangeRequestService{
		repo:      repo,
		students:  students,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records a new request in pending_admin2. Duplicates are allowed.
func (s *ChangeRequestService) Submit(ctx context.Context, req dto.SubmitChangeRequest) (*models.ChangeRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}

	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	var studentName string
	if student, ok := findStudent(students, req.StudentID); ok {
		studentName = student.Name
	}

	request := &models.ChangeRequest{
		StudentID:   req.StudentID,
		StudentName: studentName,
		Field:       req.Field,
		NewValue:    req.NewValue,
		Reason:      req.Reason,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, persistenceError(err, "failed to create change request")
	}
	s.logger.Info("change request submitted",
		zap.String("request_id", request.ID),
		zap.String("student_id", request.StudentID),
		zap.String("field", request.Field),
	)
	return request, nil
}

// List returns requests visible to the actor. Students only see their own.
func (s *ChangeRequestService) List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.ChangeRequestFilter{Status: query.Status, StudentID: strings.TrimSpace(query.StudentID)}
	switch actor.Role {
	case models.RoleAdmin1, models.RoleAdmin2:
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, persistenceError(err, "failed to list change requests")
	}
	return requests, nil
}

// Get returns one request, enforcing the same scope as List.
func (s *ChangeRequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceError(err, "failed to load change request")
	}
	switch actor.Role {
	case models.RoleAdmin1, models.RoleAdmin2:
	case models.RoleStudent:
		if request.StudentID != actor.UserID {
			return nil, appErrors.ErrForbidden
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// FirstTierReview approves a pending_admin2 request onto pending_admin1 or rejects it.
// It never touches the student.
func (s *ChangeRequestService) FirstTierReview(ctx context.Context, id string, approve bool, reviewerID string) (*models.ChangeRequest, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceError(err, "failed to load change request")
	}
	if current.Status != models.ChangeRequestPendingAdmin2 {
		return nil, appErrors.NewStateError(string(models.ChangeRequestPendingAdmin2), string(current.Status))
	}

	nextStatus := models.ChangeRequestRejected
	if approve {
		nextStatus = models.ChangeRequestPendingAdmin1
	}
	next := s.advance(*current, nextStatus)
	reviewedAt := next.UpdatedAt
	next.FirstReviewedBy = &reviewerID
	next.FirstReviewedAt = &reviewedAt

	if _, err := s.repo.Transition(ctx, *current, next, nil); err != nil {
		return nil, persistenceError(err, "failed to review change request")
	}
	s.recordTransition(*current, next, reviewerID)
	return &next, nil
}

// Reject is FirstTierReview with a negative decision.
func (s *ChangeRequestService) Reject(ctx context.Context, id string, reviewerID string) (*models.ChangeRequest, error) {
	return s.FirstTierReview(ctx, id, false, reviewerID)
}

// SecondTierExecute applies a pending_admin1 request to its student and approves it
// in one commit. Only the named attribute is written, against the stored student at
// commit time. A missing student is reported as not applied without error.
func (s *ChangeRequestService) SecondTierExecute(ctx context.Context, id string, executorID string) (*dto.ExecutionResult, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceError(err, "failed to load change request")
	}
	if current.Status != models.ChangeRequestPendingAdmin1 {
		return nil, appErrors.NewStateError(string(models.ChangeRequestPendingAdmin1), string(current.Status))
	}

	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	student, ok := findStudent(students, current.StudentID)
	if !ok {
		return s.skipMissingStudent(current), nil
	}

	next := s.advance(*current, models.ChangeRequestApproved)
	executedAt := next.UpdatedAt
	next.ExecutedBy = &executorID
	next.ExecutedAt = &executedAt

	var patch *models.StudentPatch
	if attribute, matched := models.ResolveChangeField(current.Field); matched {
		patch = &models.StudentPatch{StudentID: current.StudentID, Attribute: attribute, Value: current.NewValue}
	} else {
		s.logger.Warn("change request field matches no student attribute",
			zap.String("request_id", current.ID),
			zap.String("field", current.Field),
		)
	}

	patched, err := s.repo.Transition(ctx, *current, next, patch)
	if errors.Is(err, appErrors.ErrStudentNotFound) {
		return s.skipMissingStudent(current), nil
	}
	if err != nil {
		return nil, persistenceError(err, "failed to execute change request")
	}
	s.recordTransition(*current, next, executorID)

	result := &dto.ExecutionResult{Request: next, Applied: true, StudentUpdated: patched != nil, Student: &student}
	if patched != nil {
		result.Student = patched
	}
	return result, nil
}

func (s *ChangeRequestService) skipMissingStudent(current *models.ChangeRequest) *dto.ExecutionResult {
	s.logger.Warn("change request targets unknown student, skipping execution",
		zap.String("request_id", current.ID),
		zap.String("student_id", current.StudentID),
	)
	return &dto.ExecutionResult{Request: *current, Applied: false}
}

// ApplyChange writes value into the attribute named by field, matched by
// case-insensitive substring in the order name, contact, address, dob.
// It reports whether any attribute matched.
func ApplyChange(student *models.Student, field, value string) bool {
	attribute, ok := models.ResolveChangeField(field)
	if !ok {
		return false
	}
	attribute.Set(student, value)
	return true
}

func (s *ChangeRequestService) advance(current models.ChangeRequest, status models.ChangeRequestStatus) models.ChangeRequest {
	next := current
	next.Status = status
	next.Version = current.Version + 1
	next.UpdatedAt = s.now().UTC()
	return next
}

func (s *ChangeRequestService) recordTransition(prev, next models.ChangeRequest, actor string) {
	if s.metrics != nil {
		s.metrics.ObserveWorkflowTransition(prev.Status, next.Status)
	}
	s.logger.Info("change request transitioned",
		zap.String("request_id", next.ID),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
		zap.Int("version", next.Version),
		zap.String("actor", actor),
	)
}

func findStudent(students []models.Student, id string) (models.Student, bool) {
	for _, student := range students {
		if student.ID == id {
			return student, true
		}
	}
	return models.Student{}, false
}

// persistenceError keeps typed errors (not found, stale state, cache write) and wraps the rest.
func persistenceError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
