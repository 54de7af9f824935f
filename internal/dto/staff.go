package dto

// CreateStaffRequest registers a staff member. The id is derived from IsHod.
type CreateStaffRequest struct {
	Name              string   `json:"name" validate:"required"`
	Email             string   `json:"email" validate:"required,email"`
	Department        string   `json:"department" validate:"required"`
	Designation       string   `json:"designation"`
	IsHod             bool     `json:"isHod"`
	AllocatedSubjects []string `json:"allocatedSubjects" validate:"omitempty,dive,required"`
}

// UpdateStaffRequest edits descriptive fields. HOD status changes through SetHODRequest.
type UpdateStaffRequest struct {
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Department  string `json:"department" validate:"required"`
	Designation string `json:"designation"`
}

// SetHODRequest toggles head-of-department status.
type SetHODRequest struct {
	IsHod *bool `json:"isHod" validate:"required"`
}

// AllocateSubjectsRequest replaces a staff member's allocated subjects.
type AllocateSubjectsRequest struct {
	Subjects []string `json:"subjects" validate:"required,min=1,dive,required"`
}

// ReviewAllocationRequest verifies or rejects a pending allocation.
type ReviewAllocationRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}
