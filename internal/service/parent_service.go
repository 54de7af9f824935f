package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// ParentService manages parent profiles. Linking a parent updates the student side.
type ParentService struct {
	parents   collection[models.ParentProfile]
	students  collection[models.Student]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewParentService constructs the service.
func NewParentService(parents collection[models.ParentProfile], students collection[models.Student], validate *validator.Validate, logger *zap.Logger) *ParentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ParentService{parents: parents, students: students, validator: validate, logger: logger, now: time.Now}
}

// List returns every parent.
func (s *ParentService) List(ctx context.Context) ([]models.ParentProfile, error) {
	parents, err := s.parents.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parents")
	}
	return parents, nil
}

// Get returns one parent.
func (s *ParentService) Get(ctx context.Context, id string) (*models.ParentProfile, error) {
	parents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	parent, ok := findParent(parents, id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "parent not found")
	}
	return &parent, nil
}

// Upsert creates or replaces a parent and cascades the student link.
func (s *ParentService) Upsert(ctx context.Context, req dto.ParentRequest) (*models.ParentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid parent payload")
	}
	parents, err := s.parents.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parents")
	}
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if req.StudentID != "" {
		if _, ok := findStudent(students, req.StudentID); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student not found")
		}
	}

	parent := models.ParentProfile{
		ID:            req.ID,
		Name:          req.Name,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		StudentID:     req.StudentID,
		ContactNumber: req.ContactNumber,
		UpdatedAt:     s.now().UTC(),
	}

	view := make([]models.ParentProfile, 0, len(parents)+1)
	for _, existing := range parents {
		if existing.ID != parent.ID {
			view = append(view, existing)
		}
	}
	view = append(view, parent)

	changes := relink(students, view, parent.StudentID, parent.ID)
	if err := s.parents.UpsertMany(ctx, append([]models.ParentProfile{parent}, changes.parents...)); err != nil {
		return nil, persistenceError(err, "failed to save parent")
	}
	if len(changes.students) > 0 {
		if err := s.students.UpsertMany(ctx, changes.students); err != nil {
			return nil, persistenceError(err, "failed to update student links")
		}
	}
	return &parent, nil
}

// Delete removes a parent and clears the linked student's parentId.
func (s *ParentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if err := s.parents.DeleteOne(ctx, id); err != nil {
		return persistenceError(err, "failed to delete parent")
	}
	changes := relink(students, nil, "", id)
	if len(changes.students) > 0 {
		if err := s.students.UpsertMany(ctx, changes.students); err != nil {
			return persistenceError(err, "failed to update student links")
		}
	}
	return nil
}

// ForStudent returns the parent linked to a student, if any.
func (s *ParentService) ForStudent(ctx context.Context, studentID string) (*models.ParentProfile, error) {
	parents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, parent := range parents {
		if parent.StudentID == studentID {
			p := parent
			return &p, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no parent linked to student")
}
