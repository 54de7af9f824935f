package models

// Department is identified by its short code (e.g. CSE).
type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject is a course catalog entry keyed by its unique code.
type Subject struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	Type       string `json:"type"`
	Department string `json:"department,omitempty"`
	Semester   int    `json:"semester,omitempty"`
}
