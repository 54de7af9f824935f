package dto

import "github.com/noah-isme/campus-records-api/internal/models"

// SubmitChangeRequest is the payload a student sends to ask for a record change.
type SubmitChangeRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	Field     string `json:"field" validate:"required,oneof=Name Contact Address DOB"`
	NewValue  string `json:"newValue" validate:"required,max=256"`
	Reason    string `json:"reason" validate:"max=1024"`
}

// FirstTierReviewRequest carries the first reviewer's decision.
type FirstTierReviewRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

// ChangeRequestQuery mirrors supported listing filters.
type ChangeRequestQuery struct {
	Status    []models.ChangeRequestStatus
	StudentID string
}

// ExecutionResult reports the outcome of a second-tier execution.
type ExecutionResult struct {
	Request models.ChangeRequest `json:"request"`
	// Applied is false when the target student no longer exists; the request is then left untouched.
	Applied bool `json:"applied"`
	// StudentUpdated is false when the field named no known attribute.
	StudentUpdated bool            `json:"studentUpdated"`
	Student        *models.Student `json:"student,omitempty"`
}
