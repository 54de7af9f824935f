package dto

// StudentRequest creates or replaces a student's editable attributes. Attendance
// and marks are only changed through their own endpoints.
type StudentRequest struct {
	ID                string   `json:"id" validate:"required"`
	Email             string   `json:"email" validate:"required,email"`
	Name              string   `json:"name" validate:"required"`
	ContactNumber     string   `json:"contactNumber"`
	Address           string   `json:"address"`
	DOB               string   `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Department        string   `json:"department" validate:"required"`
	Section           string   `json:"section"`
	Batch             string   `json:"batch"`
	CurrentSemester   int      `json:"currentSemester" validate:"gte=0,lte=12"`
	TutorID           string   `json:"tutorId"`
	ParentID          string   `json:"parentId"`
	Verified          bool     `json:"verified"`
	Backlogs          []string `json:"backlogs"`
	PerformanceReport string   `json:"performanceReport"`
}

// StudentQuery filters student listings.
type StudentQuery struct {
	Department string
	TutorID    string
}

// AttendanceRequest appends one attendance entry.
type AttendanceRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	SubjectCode string `json:"subjectCode"`
	Present     *bool  `json:"present" validate:"required"`
}

// MarkRequest records a subject result.
type MarkRequest struct {
	SubjectCode string  `json:"subjectCode" validate:"required"`
	SubjectName string  `json:"subjectName"`
	Semester    int     `json:"semester" validate:"gte=1,lte=12"`
	Internal    float64 `json:"internal" validate:"gte=0"`
	External    float64 `json:"external" validate:"gte=0"`
	Grade       string  `json:"grade"`
}

// ParentRequest creates or replaces a parent profile.
type ParentRequest struct {
	ID            string `json:"id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	StudentID     string `json:"studentId"`
	ContactNumber string `json:"contactNumber"`
}
