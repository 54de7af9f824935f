package models

import "time"

// ParentProfile is a guardian linked to at most one student.
type ParentProfile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	StudentID     string    `json:"studentId,omitempty"`
	ContactNumber string    `json:"contactNumber"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
