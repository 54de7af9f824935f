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

// StaffService manages staff profiles, HOD status and subject allocation review.
type StaffService struct {
	staff     collection[models.StaffProfile]
	students  collection[models.Student]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStaffService constructs the service.
func NewStaffService(staff collection[models.StaffProfile], students collection[models.Student], validate *validator.Validate, logger *zap.Logger) *StaffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StaffService{staff: staff, students: students, validator: validate, logger: logger, now: time.Now}
}

// List returns staff, optionally restricted to one department.
func (s *StaffService) List(ctx context.Context, department string) ([]models.StaffProfile, error) {
	staff, err := s.staff.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	department = strings.TrimSpace(department)
	if department == "" {
		return staff, nil
	}
	filtered := make([]models.StaffProfile, 0, len(staff))
	for _, member := range staff {
		if strings.EqualFold(member.Department, department) {
			filtered = append(filtered, member)
		}
	}
	return filtered, nil
}

// Get returns one staff member.
func (s *StaffService) Get(ctx context.Context, id string) (*models.StaffProfile, error) {
	staff, err := s.staff.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	member, ok := findStaff(staff, id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
	}
	return &member, nil
}

// Create registers a staff member under a derived id.
func (s *StaffService) Create(ctx context.Context, req dto.CreateStaffRequest) (*models.StaffProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}
	staff, err := s.staff.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}

	department := strings.ToUpper(strings.TrimSpace(req.Department))
	member := models.StaffProfile{
		ID:                StaffID(department, req.IsHod, "", false),
		Name:              req.Name,
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Department:        department,
		Designation:       req.Designation,
		IsHod:             req.IsHod,
		AllocatedSubjects: nonNil(req.AllocatedSubjects),
		AllocationStatus:  models.AllocationPending,
		UpdatedAt:         s.now().UTC(),
	}
	if _, exists := findStaff(staff, member.ID); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department already has a head")
	}
	if err := s.staff.UpsertOne(ctx, member); err != nil {
		return nil, persistenceError(err, "failed to save staff member")
	}
	return &member, nil
}

// Update edits descriptive fields of a staff member.
func (s *StaffService) Update(ctx context.Context, id string, req dto.UpdateStaffRequest) (*models.StaffProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff payload")
	}
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	department := strings.ToUpper(strings.TrimSpace(req.Department))
	if member.IsHod && department != member.Department {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remove head of department status before moving department")
	}
	member.Name = req.Name
	member.Email = strings.ToLower(strings.TrimSpace(req.Email))
	member.Department = department
	member.Designation = req.Designation
	member.UpdatedAt = s.now().UTC()
	if err := s.staff.UpsertOne(ctx, *member); err != nil {
		return nil, persistenceError(err, "failed to save staff member")
	}
	return member, nil
}

// Delete removes a staff member and clears tutor links pointing at them.
func (s *StaffService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.staff.DeleteOne(ctx, id); err != nil {
		return persistenceError(err, "failed to delete staff member")
	}
	return s.retargetTutor(ctx, id, "")
}

// SetHOD toggles head-of-department status. The id is rewritten by StaffID and every
// student whose tutor was the old id follows to the new one.
func (s *StaffService) SetHOD(ctx context.Context, id string, isHod bool) (*models.StaffProfile, error) {
	staff, err := s.staff.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}
	member, ok := findStaff(staff, id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "staff member not found")
	}
	if member.IsHod == isHod {
		return &member, nil
	}

	oldID := member.ID
	member.ID = StaffID(member.Department, isHod, member.ID, member.IsHod)
	member.IsHod = isHod
	member.UpdatedAt = s.now().UTC()
	if _, taken := findStaff(staff, member.ID); taken && member.ID != oldID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department already has a head")
	}

	if err := s.staff.UpsertOne(ctx, member); err != nil {
		return nil, persistenceError(err, "failed to save staff member")
	}
	if member.ID != oldID {
		if err := s.staff.DeleteOne(ctx, oldID); err != nil {
			return nil, persistenceError(err, "failed to remove previous staff id")
		}
		if err := s.retargetTutor(ctx, oldID, member.ID); err != nil {
			return nil, err
		}
	}
	s.logger.Info("staff head of department status changed",
		zap.String("previous_id", oldID),
		zap.String("id", member.ID),
		zap.Bool("is_hod", isHod),
	)
	return &member, nil
}

// AllocateSubjects replaces allocated subjects and puts the allocation back to pending.
func (s *StaffService) AllocateSubjects(ctx context.Context, id string, req dto.AllocateSubjectsRequest) (*models.StaffProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	member.AllocatedSubjects = req.Subjects
	member.AllocationStatus = models.AllocationPending
	member.UpdatedAt = s.now().UTC()
	if err := s.staff.UpsertOne(ctx, *member); err != nil {
		return nil, persistenceError(err, "failed to save allocation")
	}
	return member, nil
}

// ReviewAllocation verifies or rejects a pending allocation.
func (s *StaffService) ReviewAllocation(ctx context.Context, id string, approve bool) (*models.StaffProfile, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.AllocationStatus != models.AllocationPending {
		return nil, appErrors.NewStateError(string(models.AllocationPending), string(member.AllocationStatus))
	}
	member.AllocationStatus = models.AllocationRejected
	if approve {
		member.AllocationStatus = models.AllocationVerified
	}
	member.UpdatedAt = s.now().UTC()
	if err := s.staff.UpsertOne(ctx, *member); err != nil {
		return nil, persistenceError(err, "failed to save allocation review")
	}
	return member, nil
}

func (s *StaffService) retargetTutor(ctx context.Context, oldID, newID string) error {
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	var changed []models.Student
	for _, student := range students {
		if student.TutorID == oldID {
			student.TutorID = newID
			changed = append(changed, student)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	if err := s.students.UpsertMany(ctx, changed); err != nil {
		return persistenceError(err, "failed to update tutor links")
	}
	return nil
}

func findStaff(staff []models.StaffProfile, id string) (models.StaffProfile, bool) {
	for _, member := range staff {
		if member.ID == id {
			return member, true
		}
	}
	return models.StaffProfile{}, false
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
