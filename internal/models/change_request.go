package models

import (
	"strings"
	"time"
)

// ChangeRequestStatus captures workflow states for student data change requests.
type ChangeRequestStatus string

const (
	ChangeRequestPendingAdmin2 ChangeRequestStatus = "pending_admin2"
	ChangeRequestPendingAdmin1 ChangeRequestStatus = "pending_admin1"
	ChangeRequestApproved      ChangeRequestStatus = "approved"
	ChangeRequestRejected      ChangeRequestStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s ChangeRequestStatus) Terminal() bool {
	return s == ChangeRequestApproved || s == ChangeRequestRejected
}

// Fields a student may ask to change.
const (
	ChangeFieldName    = "Name"
	ChangeFieldContact = "Contact"
	ChangeFieldAddress = "Address"
	ChangeFieldDOB     = "DOB"
)

// StudentAttribute is a student field a change request can write.
type StudentAttribute string

const (
	AttributeName    StudentAttribute = "name"
	AttributeContact StudentAttribute = "contact"
	AttributeAddress StudentAttribute = "address"
	AttributeDOB     StudentAttribute = "dob"
)

// ResolveChangeField maps a request field to the attribute it writes, matched by
// case-insensitive substring in the order name, contact, address, dob.
func ResolveChangeField(field string) (StudentAttribute, bool) {
	f := strings.ToLower(field)
	for _, attribute := range []StudentAttribute{AttributeName, AttributeContact, AttributeAddress, AttributeDOB} {
		if strings.Contains(f, string(attribute)) {
			return attribute, true
		}
	}
	return "", false
}

// Set writes value into the attribute of s.
func (a StudentAttribute) Set(s *Student, value string) {
	switch a {
	case AttributeName:
		s.Name = value
	case AttributeContact:
		s.ContactNumber = value
	case AttributeAddress:
		s.Address = value
	case AttributeDOB:
		s.DOB = value
	}
}

// StudentPatch writes one attribute of one student.
type StudentPatch struct {
	StudentID string
	Attribute StudentAttribute
	Value     string
}

// ChangeRequest is a student-initiated data change awaiting two review stages.
// Version increments on every transition and guards concurrent reviewers.
type ChangeRequest struct {
	ID              string              `json:"id"`
	StudentID       string              `json:"studentId"`
	StudentName     string              `json:"studentName"`
	Field           string              `json:"field"`
	NewValue        string              `json:"newValue"`
	Reason          string              `json:"reason"`
	Status          ChangeRequestStatus `json:"status"`
	Version         int                 `json:"version"`
	FirstReviewedBy *string             `json:"firstReviewedBy,omitempty"`
	FirstReviewedAt *time.Time          `json:"firstReviewedAt,omitempty"`
	ExecutedBy      *string             `json:"executedBy,omitempty"`
	ExecutedAt      *time.Time          `json:"executedAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// ChangeRequestFilter constrains listing.
type ChangeRequestFilter struct {
	Status    []ChangeRequestStatus
	StudentID string
}
