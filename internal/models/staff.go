package models

import "time"

// AllocationStatus tracks review of a staff member's subject allocation.
type AllocationStatus string

const (
	AllocationPending  AllocationStatus = "pending"
	AllocationVerified AllocationStatus = "verified"
	AllocationRejected AllocationStatus = "rejected"
)

// StaffProfile represents a faculty member. The ID is derived from IsHod; see service.StaffID.
type StaffProfile struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Email             string           `json:"email"`
	Department        string           `json:"department"`
	Designation       string           `json:"designation"`
	IsHod             bool             `json:"isHod"`
	AllocatedSubjects []string         `json:"allocatedSubjects"`
	AllocationStatus  AllocationStatus `json:"allocationStatus"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}
