package models

import (
	"time"

	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
)

// MinRegistrationAge is the youngest age at which a profile may be saved.
const MinRegistrationAge = 16

// Profile holds the donor attributes the eligibility rules read.
type Profile struct {
	DonorID   id.DonorID      `json:"donor_id"`
	BirthDate time.Time       `json:"birth_date"`
	Sex       eligibility.Sex `json:"sex"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate checks the profile against the calendar day today.
func (p *Profile) Validate(today time.Time) error {
	if p.DonorID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "donor_id is required")
	}
	if err := eligibility.ValidateDate(p.BirthDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "birth_date must be a calendar date")
	}
	if !p.Sex.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "sex must be one of: male, female")
	}
	if p.BirthDate.After(eligibility.AddYears(today, -MinRegistrationAge)) {
		return dErrors.New(dErrors.CodeValidation, "birth_date must be at least 16 years before today")
	}
	return nil
}

func (p *Profile) ToEngine() eligibility.Profile {
	return eligibility.Profile{BirthDate: p.BirthDate, Sex: p.Sex}
}
