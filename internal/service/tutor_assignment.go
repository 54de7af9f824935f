package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

// AssignmentResult summarises one tutor assignment run.
type AssignmentResult struct {
	// Students is the whole roster after the run, handed back so callers can
	// persist it. It is kept out of JSON on purpose: API responses carry only
	// Changed, never every student record.
	Students []models.Student `json:"-"`

	// Changed holds only the students that received a tutor in this run.
	Changed []models.Student `json:"changed"`

	Assigned int `json:"assigned"`

	// Unassigned counts students per department left without a tutor because
	// the department has no staff at all.
	Unassigned map[string]int `json:"unassigned"`
}

// AssignTutors gives every student without a tutor one from their department.
// Students are grouped by department in first-seen order and dealt round-robin,
// by position, over the department's non-HOD staff; the HOD is used only when
// the department has no other staff. The inputs are not modified.
func AssignTutors(students []models.Student, staff []models.StaffProfile) AssignmentResult {
	result := AssignmentResult{
		Students:   make([]models.Student, len(students)),
		Changed:    []models.Student{},
		Unassigned: map[string]int{},
	}
	copy(result.Students, students)

	var departments []string
	pending := make(map[string][]int)
	for i, student := range result.Students {
		if student.HasTutor() {
			continue
		}
		if _, seen := pending[student.Department]; !seen {
			departments = append(departments, student.Department)
		}
		pending[student.Department] = append(pending[student.Department], i)
	}

	for _, department := range departments {
		indexes := pending[department]
		pool := tutorPool(staff, department)
		if len(pool) == 0 {
			result.Unassigned[department] = len(indexes)
			continue
		}
		for position, idx := range indexes {
			result.Students[idx].TutorID = pool[position%len(pool)].ID
			result.Changed = append(result.Changed, result.Students[idx])
			result.Assigned++
		}
	}
	return result
}

func tutorPool(staff []models.StaffProfile, department string) []models.StaffProfile {
	var all, regular []models.StaffProfile
	for _, member := range staff {
		if member.Department != department {
			continue
		}
		all = append(all, member)
		if !member.IsHod {
			regular = append(regular, member)
		}
	}
	if len(regular) > 0 {
		return regular
	}
	return all
}

type assignmentRecorder interface {
	ObserveTutorAssignment(assigned, unassigned int)
}

// TutorAssignmentService runs AssignTutors against the persisted collections.
type TutorAssignmentService struct {
	students collection[models.Student]
	staff    collection[models.StaffProfile]
	metrics  assignmentRecorder
	logger   *zap.Logger
}

// NewTutorAssignmentService constructs the service. metrics may be nil.
func NewTutorAssignmentService(students collection[models.Student], staff collection[models.StaffProfile], metrics assignmentRecorder, logger *zap.Logger) *TutorAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorAssignmentService{students: students, staff: staff, metrics: metrics, logger: logger}
}

// Run assigns tutors and persists only the students that changed.
func (s *TutorAssignmentService) Run(ctx context.Context) (*AssignmentResult, error) {
	students, err := s.students.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	staff, err := s.staff.FetchAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff")
	}

	result := AssignTutors(students, staff)
	if len(result.Changed) > 0 {
		if err := s.students.UpsertMany(ctx, result.Changed); err != nil {
			return nil, persistenceError(err, "failed to persist tutor assignments")
		}
	}

	var unassigned int
	for department, count := range result.Unassigned {
		unassigned += count
		s.logger.Warn("department has no staff, students left without tutor",
			zap.String("department", department),
			zap.Int("students", count),
		)
	}
	if s.metrics != nil {
		s.metrics.ObserveTutorAssignment(result.Assigned, unassigned)
	}
	s.logger.Info("tutor assignment completed", zap.Int("assigned", result.Assigned), zap.Int("unassigned", unassigned))
	return &result, nil
}
