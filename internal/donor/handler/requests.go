package handler

import (
	"strings"

	dErrors "donorcal/pkg/domain-errors"
)

// ProfileRequest is the body for PUT /donor/profile.
type ProfileRequest struct {
	BirthDate string `json:"birth_date"`
	Sex       string `json:"sex"`
}

// Validate implements httputil.Validatable. Date and sex parsing happen in the
// service so stored profiles and requests share one set of rules.
func (r *ProfileRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.BirthDate = strings.TrimSpace(r.BirthDate)
	r.Sex = strings.ToLower(strings.TrimSpace(r.Sex))
	if r.BirthDate == "" {
		return dErrors.New(dErrors.CodeValidation, "birth_date is required")
	}
	if r.Sex == "" {
		return dErrors.New(dErrors.CodeValidation, "sex is required")
	}
	return nil
}
