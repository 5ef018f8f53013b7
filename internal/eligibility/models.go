package eligibility

import (
	"time"

	dErrors "donorcal/pkg/domain-errors"
)

// DonationType is the closed set of donation kinds the rules know about.
type DonationType string

const (
	WholeBlood400 DonationType = "whole_blood_400"
	WholeBlood200 DonationType = "whole_blood_200"
	Component     DonationType = "component"
)

// AllTypes returns every donation type in evaluation order.
func AllTypes() []DonationType {
	return []DonationType{WholeBlood400, WholeBlood200, Component}
}

// ParseDonationType validates a wire value.
func ParseDonationType(s string) (DonationType, error) {
	t := DonationType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown donation type: "+s)
	}
	return t, nil
}

func (t DonationType) IsValid() bool {
	switch t {
	case WholeBlood400, WholeBlood200, Component:
		return true
	}
	return false
}

// IsWholeBlood is true for the two whole-blood types.
func (t DonationType) IsWholeBlood() bool {
	return t == WholeBlood400 || t == WholeBlood200
}

func (t DonationType) String() string { return string(t) }

// Sex selects the gender-dependent thresholds.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

func ParseSex(s string) (Sex, error) {
	sex := Sex(s)
	if !sex.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "sex must be one of: male, female")
	}
	return sex, nil
}

func (s Sex) IsValid() bool {
	return s == Male || s == Female
}

// Profile is the donor data the rules depend on.
type Profile struct {
	BirthDate time.Time
	Sex       Sex
}

// Record is the engine's view of a past donation. History slices are ordered by
// insertion; that order breaks ties between records sharing a date.
type Record struct {
	Type DonationType
	Date time.Time
}

// Reason is the stable code explaining why a type is blocked.
type Reason string

const (
	ReasonAgeRestriction  Reason = "age_restriction"
	ReasonMinimumInterval Reason = "minimum_interval"
	ReasonAnnualVolumeCap Reason = "annual_volume_cap"
)

// Verdict is the outcome for a single donation type.
// NextEligible is set for interval and volume-cap blocks only.
type Verdict struct {
	Type         DonationType
	Available    bool
	Reason       Reason
	NextEligible *time.Time
}

func available(t DonationType) Verdict {
	return Verdict{Type: t, Available: true}
}

func blocked(t DonationType, reason Reason, next *time.Time) Verdict {
	return Verdict{Type: t, Reason: reason, NextEligible: next}
}

// Verdicts holds one verdict per donation type in AllTypes order.
type Verdicts []Verdict

// Get returns the verdict for t.
func (v Verdicts) Get(t DonationType) (Verdict, bool) {
	for _, verdict := range v {
		if verdict.Type == t {
			return verdict, true
		}
	}
	return Verdict{}, false
}

// AvailableTypes lists the types a record may be created with.
func (v Verdicts) AvailableTypes() []DonationType {
	out := make([]DonationType, 0, len(v))
	for _, verdict := range v {
		if verdict.Available {
			out = append(out, verdict.Type)
		}
	}
	return out
}
