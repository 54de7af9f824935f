package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/dto"
	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// CatalogService manages departments and the subject catalog.
type CatalogService struct {
	departments collection[models.Department]
	subjects    collection[models.Subject]
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(departments collection[models.Department], subjects collection[models.Subject], validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{departments: departments, subjects: subjects, validator: validate, logger: logger}
}

// ListDepartments returns departments ordered by id.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.departments.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load departments")
	}
	sort.SliceStable(departments, func(i, j int) bool { return departments[i].ID < departments[j].ID })
	return departments, nil
}

// UpsertDepartment creates or renames a department.
func (s *CatalogService) UpsertDepartment(ctx context.Context, req dto.DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	department := models.Department{
		ID:   strings.ToUpper(strings.TrimSpace(req.ID)),
		Name: strings.TrimSpace(req.Name),
	}
	if err := s.departments.UpsertOne(ctx, department); err != nil {
		return nil, persistenceError(err, "failed to save department")
	}
	return &department, nil
}

// DeleteDepartment removes a department. Students and staff keep their department code.
func (s *CatalogService) DeleteDepartment(ctx context.Context, id string) error {
	departments, err := s.departments.FetchAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load departments")
	}
	id = strings.ToUpper(strings.TrimSpace(id))
	found := false
	for _, department := range departments {
		if department.ID == id {
			found = true
			break
		}
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "department not found")
	}
	if err := s.departments.DeleteOne(ctx, id); err != nil {
		return persistenceError(err, "failed to delete department")
	}
	return nil
}

// ListSubjects returns the merged subject catalog, optionally for one department.
func (s *CatalogService) ListSubjects(ctx context.Context, department string) ([]models.Subject, error) {
	subjects, err := s.subjects.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	department = strings.TrimSpace(department)
	if department == "" {
		return subjects, nil
	}
	filtered := make([]models.Subject, 0, len(subjects))
	for _, subject := range subjects {
		if strings.EqualFold(subject.Department, department) {
			filtered = append(filtered, subject)
		}
	}
	return filtered, nil
}

// UpsertSubject creates or replaces a subject by code.
func (s *CatalogService) UpsertSubject(ctx context.Context, req dto.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := models.Subject{
		Code:       strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:       strings.TrimSpace(req.Name),
		Credits:    req.Credits,
		Type:       req.Type,
		Department: strings.ToUpper(strings.TrimSpace(req.Department)),
		Semester:   req.Semester,
	}
	if err := s.subjects.UpsertOne(ctx, subject); err != nil {
		return nil, persistenceError(err, "failed to save subject")
	}
	return &subject, nil
}

// DeleteSubject removes a subject by code.
func (s *CatalogService) DeleteSubject(ctx context.Context, code string) error {
	subjects, err := s.subjects.FetchAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	found := false
	for _, subject := range subjects {
		if subject.Code == code {
			found = true
			break
		}
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	if err := s.subjects.DeleteOne(ctx, code); err != nil {
		return persistenceError(err, "failed to delete subject")
	}
	return nil
}
