package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-records-api/internal/models"
)

// table describes one remote relation: its snake_case columns and how rows map to
// the internal models in both directions.
type table[T any, R any] struct {
	name    string
	key     string
	columns []string
	toRow   func(T) (R, error)
	fromRow func(R) (T, error)
}

func (t table[T, R]) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(t.columns, ", "), t.name, t.key)
}

func (t table[T, R]) upsertQuery() string {
	named := make([]string, len(t.columns))
	updates := make([]string, 0, len(t.columns)-1)
	for i, column := range t.columns {
		named[i] = ":" + column
		if column != t.key {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		t.name,
		strings.Join(t.columns, ", "),
		strings.Join(named, ", "),
		t.key,
		strings.Join(updates, ", "),
	)
}

func (t table[T, R]) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t.name, t.key)
}

func (t table[T, R]) selectAll(ctx context.Context, q sqlx.QueryerContext) ([]T, error) {
	var rows []R
	if err := sqlx.SelectContext(ctx, q, &rows, t.selectQuery()); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.name, err)
	}
	items := make([]T, 0, len(rows))
	for _, row := range rows {
		item, err := t.fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode %s row: %w", t.name, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (t table[T, R]) upsert(ctx context.Context, e sqlx.ExtContext, items []T) error {
	query := t.upsertQuery()
	for _, item := range items {
		row, err := t.toRow(item)
		if err != nil {
			return fmt.Errorf("encode %s row: %w", t.name, err)
		}
		if _, err := sqlx.NamedExecContext(ctx, e, query, row); err != nil {
			return fmt.Errorf("upsert %s: %w", t.name, err)
		}
	}
	return nil
}

func (t table[T, R]) remove(ctx context.Context, e sqlx.ExecerContext, id string) error {
	if _, err := e.ExecContext(ctx, t.deleteQuery(), id); err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	return nil
}

func studentKey(s models.Student) string {
	return s.ID
}

func staffKey(s models.StaffProfile) string {
	return s.ID
}

func parentKey(p models.ParentProfile) string {
	return p.ID
}

func departmentKey(d models.Department) string {
	return d.ID
}

func subjectKey(s models.Subject) string {
	return s.Code
}

func changeRequestKey(c models.ChangeRequest) string {
	return c.ID
}

type studentRow struct {
	ID                   string         `db:"id"`
	Email                string         `db:"email"`
	Name                 string         `db:"name"`
	ContactNumber        string         `db:"contact_number"`
	Address              string         `db:"address"`
	DOB                  string         `db:"dob"`
	Department           string         `db:"department"`
	Section              string         `db:"section"`
	Batch                string         `db:"batch"`
	CurrentSemester      int            `db:"current_semester"`
	TutorID              *string        `db:"tutor_id"`
	ParentID             *string        `db:"parent_id"`
	Verified             bool           `db:"verified"`
	Backlogs             pq.StringArray `db:"backlogs"`
	Attendance           string         `db:"attendance"`
	AttendancePercentage int            `db:"attendance_percentage"`
	Marks                string         `db:"marks"`
	PerformanceReport    string         `db:"performance_report"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

var studentTable = table[models.Student, studentRow]{
	name: "students",
	key:  "id",
	columns: []string{"id", "email", "name", "contact_number", "address", "dob", "department", "section", "batch",
		"current_semester", "tutor_id", "parent_id", "verified", "backlogs", "attendance", "attendance_percentage",
		"marks", "performance_report", "updated_at"},
	toRow: func(s models.Student) (studentRow, error) {
		attendance, err := encodeJSON(s.Attendance)
		if err != nil {
			return studentRow{}, err
		}
		marks, err := encodeJSON(s.Marks)
		if err != nil {
			return studentRow{}, err
		}
		return studentRow{
			ID:                   s.ID,
			Email:                s.Email,
			Name:                 s.Name,
			ContactNumber:        s.ContactNumber,
			Address:              s.Address,
			DOB:                  s.DOB,
			Department:           s.Department,
			Section:              s.Section,
			Batch:                s.Batch,
			CurrentSemester:      s.CurrentSemester,
			TutorID:              nullable(s.TutorID),
			ParentID:             nullable(s.ParentID),
			Verified:             s.Verified,
			Backlogs:             pq.StringArray(nonNilStrings(s.Backlogs)),
			Attendance:           attendance,
			AttendancePercentage: s.AttendancePercentage,
			Marks:                marks,
			PerformanceReport:    s.PerformanceReport,
			UpdatedAt:            s.UpdatedAt,
		}, nil
	},
	fromRow: func(r studentRow) (models.Student, error) {
		s := models.Student{
			ID:                   r.ID,
			Email:                r.Email,
			Name:                 r.Name,
			ContactNumber:        r.ContactNumber,
			Address:              r.Address,
			DOB:                  r.DOB,
			Department:           r.Department,
			Section:              r.Section,
			Batch:                r.Batch,
			CurrentSemester:      r.CurrentSemester,
			TutorID:              deref(r.TutorID),
			ParentID:             deref(r.ParentID),
			Verified:             r.Verified,
			Backlogs:             []string(r.Backlogs),
			AttendancePercentage: r.AttendancePercentage,
			PerformanceReport:    r.PerformanceReport,
			UpdatedAt:            r.UpdatedAt,
		}
		if err := decodeJSON(r.Attendance, &s.Attendance); err != nil {
			return s, fmt.Errorf("attendance: %w", err)
		}
		if err := decodeJSON(r.Marks, &s.Marks); err != nil {
			return s, fmt.Errorf("marks: %w", err)
		}
		return s, nil
	},
}

type staffRow struct {
	ID                string         `db:"id"`
	Name              string         `db:"name"`
	Email             string         `db:"email"`
	Department        string         `db:"department"`
	Designation       string         `db:"designation"`
	IsHod             bool           `db:"is_hod"`
	AllocatedSubjects pq.StringArray `db:"allocated_subjects"`
	AllocationStatus  string         `db:"allocation_status"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

var staffTable = table[models.StaffProfile, staffRow]{
	name:    "staff",
	key:     "id",
	columns: []string{"id", "name", "email", "department", "designation", "is_hod", "allocated_subjects", "allocation_status", "updated_at"},
	toRow: func(s models.StaffProfile) (staffRow, error) {
		return staffRow{
			ID:                s.ID,
			Name:              s.Name,
			Email:             s.Email,
			Department:        s.Department,
			Designation:       s.Designation,
			IsHod:             s.IsHod,
			AllocatedSubjects: pq.StringArray(nonNilStrings(s.AllocatedSubjects)),
			AllocationStatus:  string(s.AllocationStatus),
			UpdatedAt:         s.UpdatedAt,
		}, nil
	},
	fromRow: func(r staffRow) (models.StaffProfile, error) {
		return models.StaffProfile{
			ID:                r.ID,
			Name:              r.Name,
			Email:             r.Email,
			Department:        r.Department,
			Designation:       r.Designation,
			IsHod:             r.IsHod,
			AllocatedSubjects: []string(r.AllocatedSubjects),
			AllocationStatus:  models.AllocationStatus(r.AllocationStatus),
			UpdatedAt:         r.UpdatedAt,
		}, nil
	},
}

type parentRow struct {
	ID            string    `db:"id"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	StudentID     *string   `db:"student_id"`
	ContactNumber string    `db:"contact_number"`
	UpdatedAt     time.Time `db:"updated_at"`
}

var parentTable = table[models.ParentProfile, parentRow]{
	name:    "parents",
	key:     "id",
	columns: []string{"id", "name", "email", "student_id", "contact_number", "updated_at"},
	toRow: func(p models.ParentProfile) (parentRow, error) {
		return parentRow{
			ID:            p.ID,
			Name:          p.Name,
			Email:         p.Email,
			StudentID:     nullable(p.StudentID),
			ContactNumber: p.ContactNumber,
			UpdatedAt:     p.UpdatedAt,
		}, nil
	},
	fromRow: func(r parentRow) (models.ParentProfile, error) {
		return models.ParentProfile{
			ID:            r.ID,
			Name:          r.Name,
			Email:         r.Email,
			StudentID:     deref(r.StudentID),
			ContactNumber: r.ContactNumber,
			UpdatedAt:     r.UpdatedAt,
		}, nil
	},
}

type departmentRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

var departmentTable = table[models.Department, departmentRow]{
	name:    "departments",
	key:     "id",
	columns: []string{"id", "name"},
	toRow: func(d models.Department) (departmentRow, error) {
		return departmentRow{ID: d.ID, Name: d.Name}, nil
	},
	fromRow: func(r departmentRow) (models.Department, error) {
		return models.Department{ID: r.ID, Name: r.Name}, nil
	},
}

type subjectRow struct {
	Code       string `db:"code"`
	Name       string `db:"name"`
	Credits    int    `db:"credits"`
	Type       string `db:"type"`
	Department string `db:"department"`
	Semester   int    `db:"semester"`
}

var subjectTable = table[models.Subject, subjectRow]{
	name:    "subjects",
	key:     "code",
	columns: []string{"code", "name", "credits", "type", "department", "semester"},
	toRow: func(s models.Subject) (subjectRow, error) {
		return subjectRow(s), nil
	},
	fromRow: func(r subjectRow) (models.Subject, error) {
		return models.Subject(r), nil
	},
}

type changeRequestRow struct {
	ID              string     `db:"id"`
	StudentID       string     `db:"student_id"`
	StudentName     string     `db:"student_name"`
	Field           string     `db:"field"`
	NewValue        string     `db:"new_value"`
	Reason          string     `db:"reason"`
	Status          string     `db:"status"`
	Version         int        `db:"version"`
	FirstReviewedBy *string    `db:"first_reviewed_by"`
	FirstReviewedAt *time.Time `db:"first_reviewed_at"`
	ExecutedBy      *string    `db:"executed_by"`
	ExecutedAt      *time.Time `db:"executed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

var changeRequestTable = table[models.ChangeRequest, changeRequestRow]{
	name: "change_requests",
	key:  "id",
	columns: []string{"id", "student_id", "student_name", "field", "new_value", "reason", "status", "version",
		"first_reviewed_by", "first_reviewed_at", "executed_by", "executed_at", "created_at", "updated_at"},
	toRow: func(c models.ChangeRequest) (changeRequestRow, error) {
		return changeRequestRow{
			ID:              c.ID,
			StudentID:       c.StudentID,
			StudentName:     c.StudentName,
			Field:           c.Field,
			NewValue:        c.NewValue,
			Reason:          c.Reason,
			Status:          string(c.Status),
			Version:         c.Version,
			FirstReviewedBy: c.FirstReviewedBy,
			FirstReviewedAt: c.FirstReviewedAt,
			ExecutedBy:      c.ExecutedBy,
			ExecutedAt:      c.ExecutedAt,
			CreatedAt:       c.CreatedAt,
			UpdatedAt:       c.UpdatedAt,
		}, nil
	},
	fromRow: func(r changeRequestRow) (models.ChangeRequest, error) {
		return models.ChangeRequest{
			ID:              r.ID,
			StudentID:       r.StudentID,
			StudentName:     r.StudentName,
			Field:           r.Field,
			NewValue:        r.NewValue,
			Reason:          r.Reason,
			Status:          models.ChangeRequestStatus(r.Status),
			Version:         r.Version,
			FirstReviewedBy: r.FirstReviewedBy,
			FirstReviewedAt: r.FirstReviewedAt,
			ExecutedBy:      r.ExecutedBy,
			ExecutedAt:      r.ExecutedAt,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		}, nil
	},
}

func nullable(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func encodeJSON(value interface{}) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(raw) == "null" {
		return "[]", nil
	}
	return string(raw), nil
}

func decodeJSON(raw string, dest interface{}) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}
