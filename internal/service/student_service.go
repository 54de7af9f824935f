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

// StudentService manages student records and keeps parent links consistent.
type StudentService struct {
	students  collection[models.Student]
	parents   collection[models.ParentProfile]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the service.
func NewStudentService(students collection[models.Student], parents collection[models.ParentProfile], validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{students: students, parents: parents, validator: validate, logger: logger, now: time.Now}
}

// List returns students matching the query.
func (s *StudentService) List(ctx context.Context, query dto.StudentQuery) ([]models.Student, error) {
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	result := make([]models.Student, 0, len(students))
	for _, student := range students {
		if query.Department != "" && !strings.EqualFold(student.Department, query.Department) {
			continue
		}
		if query.TutorID != "" && student.TutorID != query.TutorID {
			continue
		}
		result = append(result, student)
	}
	return result, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	student, ok := findStudent(students, id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &student, nil
}

// Upsert creates or replaces a student. Attendance and marks of an existing record
// are kept. The linked parent, and any previous partner on either side, are updated
// so both directions of the link agree.
func (s *StudentService) Upsert(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	parents, err := s.parents.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parents")
	}
	if req.ParentID != "" {
		if _, ok := findParent(parents, req.ParentID); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent not found")
		}
	}

	student, _ := findStudent(students, req.ID)
	student.ID = req.ID
	student.Email = strings.ToLower(strings.TrimSpace(req.Email))
	student.Name = req.Name
	student.ContactNumber = req.ContactNumber
	student.Address = req.Address
	student.DOB = req.DOB
	student.Department = strings.ToUpper(strings.TrimSpace(req.Department))
	student.Section = req.Section
	student.Batch = req.Batch
	student.CurrentSemester = req.CurrentSemester
	student.TutorID = req.TutorID
	student.ParentID = req.ParentID
	student.Verified = req.Verified
	student.Backlogs = models.NormalizeBacklogs(req.Backlogs)
	student.PerformanceReport = req.PerformanceReport
	student.RecomputeAttendance()
	student.UpdatedAt = s.now().UTC()

	view := replaceStudent(students, student)
	changes := relink(view, parents, student.ID, student.ParentID)
	if err := s.students.UpsertMany(ctx, append([]models.Student{student}, changes.students...)); err != nil {
		return nil, persistenceError(err, "failed to save student")
	}
	if len(changes.parents) > 0 {
		if err := s.parents.UpsertMany(ctx, changes.parents); err != nil {
			return nil, persistenceError(err, "failed to update parent links")
		}
	}
	return &student, nil
}

// Delete removes a student and releases its parent.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	parents, err := s.parents.FetchAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parents")
	}
	if err := s.students.DeleteOne(ctx, id); err != nil {
		return persistenceError(err, "failed to delete student")
	}
	changes := relink(nil, parents, id, "")
	if len(changes.parents) > 0 {
		if err := s.parents.UpsertMany(ctx, changes.parents); err != nil {
			return persistenceError(err, "failed to update parent links")
		}
	}
	return nil
}

// RecordAttendance appends an entry; the percentage is recomputed from the log.
func (s *StudentService) RecordAttendance(ctx context.Context, id string, req dto.AttendanceRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	return s.mutate(ctx, id, func(student *models.Student) {
		student.RecordAttendance(models.AttendanceEntry{
			Date:        req.Date,
			SubjectCode: req.SubjectCode,
			Present:     *req.Present,
		})
	})
}

// RecordMark inserts or replaces the mark for a subject and semester.
func (s *StudentService) RecordMark(ctx context.Context, id string, req dto.MarkRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	return s.mutate(ctx, id, func(student *models.Student) {
		student.UpsertMark(models.SubjectMark{
			SubjectCode: req.SubjectCode,
			SubjectName: req.SubjectName,
			Semester:    req.Semester,
			Internal:    req.Internal,
			External:    req.External,
			Total:       req.Internal + req.External,
			Grade:       req.Grade,
		})
	})
}

func (s *StudentService) mutate(ctx context.Context, id string, apply func(student *models.Student)) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(student)
	student.UpdatedAt = s.now().UTC()
	if err := s.students.UpsertOne(ctx, *student); err != nil {
		return nil, persistenceError(err, "failed to save student")
	}
	return student, nil
}

func replaceStudent(students []models.Student, student models.Student) []models.Student {
	view := make([]models.Student, 0, len(students)+1)
	replaced := false
	for _, existing := range students {
		if existing.ID == student.ID {
			view = append(view, student)
			replaced = true
			continue
		}
		view = append(view, existing)
	}
	if !replaced {
		view = append(view, student)
	}
	return view
}
