package dto

// DepartmentRequest creates or replaces a department.
type DepartmentRequest struct {
	ID   string `json:"id" validate:"required,max=16"`
	Name string `json:"name" validate:"required"`
}

// SubjectRequest creates or replaces a catalog subject keyed by code.
type SubjectRequest struct {
	Code       string `json:"code" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Credits    int    `json:"credits" validate:"gte=0,lte=10"`
	Type       string `json:"type" validate:"omitempty,oneof=theory lab elective"`
	Department string `json:"department"`
	Semester   int    `json:"semester" validate:"gte=0,lte=12"`
}
