package models

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Student is a learner record as held by the application session.
type Student struct {
	ID                   string            `json:"id"`
	Email                string            `json:"email"`
	Name                 string            `json:"name"`
	ContactNumber        string            `json:"contactNumber"`
	Address              string            `json:"address"`
	DOB                  string            `json:"dob"`
	Department           string            `json:"department"`
	Section              string            `json:"section"`
	Batch                string            `json:"batch"`
	CurrentSemester      int               `json:"currentSemester"`
	TutorID              string            `json:"tutorId,omitempty"`
	ParentID             string            `json:"parentId,omitempty"`
	Verified             bool              `json:"verified"`
	Backlogs             []string          `json:"backlogs"`
	Attendance           []AttendanceEntry `json:"attendance"`
	AttendancePercentage int               `json:"attendancePercentage"`
	Marks                []SubjectMark     `json:"marks"`
	PerformanceReport    string            `json:"performanceReport"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// AttendanceEntry is a single attendance mark.
type AttendanceEntry struct {
	Date        string `json:"date"`
	SubjectCode string `json:"subjectCode,omitempty"`
	Present     bool   `json:"present"`
}

// SubjectMark holds a student's result for one subject.
type SubjectMark struct {
	SubjectCode string  `json:"subjectCode"`
	SubjectName string  `json:"subjectName"`
	Semester    int     `json:"semester"`
	Internal    float64 `json:"internal"`
	External    float64 `json:"external"`
	Total       float64 `json:"total"`
	Grade       string  `json:"grade"`
}

// HasTutor reports whether a tutor is linked.
func (s Student) HasTutor() bool {
	return strings.TrimSpace(s.TutorID) != ""
}

// RecordAttendance appends an entry and recomputes the derived percentage.
func (s *Student) RecordAttendance(entry AttendanceEntry) {
	s.Attendance = append(s.Attendance, entry)
	s.RecomputeAttendance()
}

// RecomputeAttendance derives AttendancePercentage from the attendance log.
func (s *Student) RecomputeAttendance() {
	s.AttendancePercentage = AttendancePercentage(s.Attendance)
}

// AttendancePercentage returns round(present/total*100), 0 for an empty log.
func AttendancePercentage(entries []AttendanceEntry) int {
	if len(entries) == 0 {
		return 0
	}
	present := 0
	for _, entry := range entries {
		if entry.Present {
			present++
		}
	}
	return int(math.Round(float64(present) / float64(len(entries)) * 100))
}

// UpsertMark replaces the mark for the same subject and semester or appends a new one.
func (s *Student) UpsertMark(mark SubjectMark) {
	for i := range s.Marks {
		if s.Marks[i].SubjectCode == mark.SubjectCode && s.Marks[i].Semester == mark.Semester {
			s.Marks[i] = mark
			return
		}
	}
	s.Marks = append(s.Marks, mark)
}

// NormalizeBacklogs trims, de-duplicates and sorts backlog subject names.
func NormalizeBacklogs(backlogs []string) []string {
	seen := make(map[string]struct{}, len(backlogs))
	result := make([]string, 0, len(backlogs))
	for _, name := range backlogs {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
