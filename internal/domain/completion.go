package domain

import (
	"encoding/json"

	dErrors "unicred/pkg/domain-errors"
)

// CompletionFact is the immutable course completion notification the LMS
// emits. It is consumed once per issuance attempt. UserID is a json.Number so
// both the numeric id Moodle sends and plain string ids decode cleanly.
type CompletionFact struct {
	UserID         json.Number `json:"userId"`
	UserEmail      string      `json:"userEmail"`
	UserName       string      `json:"userName"`
	CourseID       json.Number `json:"courseId"`
	CourseName     string      `json:"courseName"`
	CompletionDate string      `json:"completionDate"`
}

// Validate rejects facts missing the fields a credential cannot be built
// without. Email is optional; not every LMS account carries one.
func (f CompletionFact) Validate() error {
	switch {
	case f.UserID.String() == "":
		return dErrors.New(dErrors.CodeInvalidInput, "userId is required")
	case f.UserName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "userName is required")
	case f.CourseName == "":
		return dErrors.New(dErrors.CodeInvalidInput, "courseName is required")
	case f.CompletionDate == "":
		return dErrors.New(dErrors.CodeInvalidInput, "completionDate is required")
	}
	return nil
}
