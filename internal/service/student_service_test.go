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
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

func boolPtr(v bool) *bool { return &v }

func studentRequest(id, parentID string) dto.StudentRequest {
	return dto.StudentRequest{
		ID:         id,
		Email:      id + "@campus.edu",
		Name:       "Student " + id,
		Department: "cse",
		ParentID:   parentID,
		Backlogs:   []string{" Maths ", "Physics", "Maths", ""},
	}
}

func TestStudentServiceUpsertNormalises(t *testing.T) {
	c := memoryCollections(t)
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())

	student, err := svc.Upsert(context.Background(), studentRequest("S1", ""))
	require.NoError(t, err)
	assert.Equal(t, "CSE", student.Department)
	assert.Equal(t, []string{"Maths", "Physics"}, student.Backlogs)
	assert.False(t, student.UpdatedAt.IsZero())
}

func TestStudentServiceUpsertKeepsAttendanceAndMarks(t *testing.T) {
	c := memoryCollections(t)
	seedStudents(t, c, models.Student{
		ID:         "S1",
		Department: "CSE",
		Attendance: []models.AttendanceEntry{{Date: "2024-01-02", Present: true}, {Date: "2024-01-03"}},
		Marks:      []models.SubjectMark{{SubjectCode: "CS101", Semester: 1, Total: 80}},
	})
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())

	student, err := svc.Upsert(context.Background(), studentRequest("S1", ""))
	require.NoError(t, err)
	assert.Len(t, student.Attendance, 2)
	assert.Equal(t, 50, student.AttendancePercentage)
	assert.Len(t, student.Marks, 1)
}

func TestStudentServiceUpsertRequiresKnownParent(t *testing.T) {
	c := memoryCollections(t)
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())

	_, err := svc.Upsert(context.Background(), studentRequest("S1", "P404"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpsertRelinksParents(t *testing.T) {
	c := memoryCollections(t)
	seedParents(t, c,
		models.ParentProfile{ID: "P1", StudentID: "S1"},
		models.ParentProfile{ID: "P2", StudentID: "S2"},
	)
	seedStudents(t, c,
		models.Student{ID: "S1", ParentID: "P1"},
		models.Student{ID: "S2", ParentID: "P2"},
	)
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())

	_, err := svc.Upsert(context.Background(), studentRequest("S1", "P2"))
	require.NoError(t, err)

	students := studentsByID(t, c)
	parents := parentsByID(t, c)
	assert.Equal(t, "P2", students["S1"].ParentID)
	assert.Empty(t, students["S2"].ParentID, "previous child of P2 is released")
	assert.Equal(t, "S1", parents["P2"].StudentID)
	assert.Empty(t, parents["P1"].StudentID, "previous parent of S1 is released")
}

func TestStudentServiceDeleteReleasesParent(t *testing.T) {
	c := memoryCollections(t)
	seedParents(t, c, models.ParentProfile{ID: "P1", StudentID: "S1"})
	seedStudents(t, c, models.Student{ID: "S1", ParentID: "P1"})
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "S1"))
	assert.NotContains(t, studentsByID(t, c), "S1")
	assert.Empty(t, parentsByID(t, c)["P1"].StudentID)

	err := svc.Delete(context.Background(), "S1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceRecordAttendance(t *testing.T) {
	c := memoryCollections(t)
	seedStudents(t, c, models.Student{ID: "S1"})
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.RecordAttendance(ctx, "S1", dto.AttendanceRequest{Date: "2024-02-01", Present: boolPtr(true)})
	require.NoError(t, err)
	_, err = svc.RecordAttendance(ctx, "S1", dto.AttendanceRequest{Date: "2024-02-02", Present: boolPtr(false)})
	require.NoError(t, err)
	student, err := svc.RecordAttendance(ctx, "S1", dto.AttendanceRequest{Date: "2024-02-03", Present: boolPtr(true)})
	require.NoError(t, err)

	assert.Len(t, student.Attendance, 3)
	assert.Equal(t, 67, student.AttendancePercentage)
	assert.Equal(t, 67, studentsByID(t, c)["S1"].AttendancePercentage)

	_, err = svc.RecordAttendance(ctx, "S1", dto.AttendanceRequest{Date: "02/03/2024", Present: boolPtr(true)})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceRecordMarkReplacesSameSemester(t *testing.T) {
	c := memoryCollections(t)
	seedStudents(t, c, models.Student{ID: "S1"})
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.RecordMark(ctx, "S1", dto.MarkRequest{SubjectCode: "CS101", Semester: 1, Internal: 20, External: 50})
	require.NoError(t, err)
	student, err := svc.RecordMark(ctx, "S1", dto.MarkRequest{SubjectCode: "CS101", Semester: 1, Internal: 25, External: 55, Grade: "A"})
	require.NoError(t, err)

	require.Len(t, student.Marks, 1)
	assert.Equal(t, float64(80), student.Marks[0].Total)
	assert.Equal(t, "A", student.Marks[0].Grade)

	student, err = svc.RecordMark(ctx, "S1", dto.MarkRequest{SubjectCode: "CS101", Semester: 2, Internal: 10, External: 10})
	require.NoError(t, err)
	assert.Len(t, student.Marks, 2)
}

func TestStudentServiceListFilters(t *testing.T) {
	c := memoryCollections(t)
	seedStudents(t, c,
		models.Student{ID: "S1", Department: "CSE", TutorID: "T1"},
		models.Student{ID: "S2", Department: "CSE"},
		models.Student{ID: "S3", Department: "ECE", TutorID: "T1"},
	)
	svc := NewStudentService(c.Students, c.Parents, nil, zap.NewNop())

	cse, err := svc.List(context.Background(), dto.StudentQuery{Department: "cse"})
	require.NoError(t, err)
	assert.Len(t, cse, 2)

	tutored, err := svc.List(context.Background(), dto.StudentQuery{TutorID: "T1", Department: "ECE"})
	require.NoError(t, err)
	require.Len(t, tutored, 1)
	assert.Equal(t, "S3", tutored[0].ID)
}
