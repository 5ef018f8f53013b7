package eligibility

import (
	"slices"
	"time"

	dErrors "donorcal/pkg/domain-errors"
)

const maxDonorAge = 69

// minAge returns the youngest permitted age for t.
func minAge(t DonationType, sex Sex) int {
	switch t {
	case WholeBlood200:
		return 16
	case WholeBlood400:
		if sex == Male {
			return 17
		}
		return 18
	default:
		return 18
	}
}

// annualCap returns the maximum whole-blood volume (mL) in a trailing year.
func annualCap(sex Sex) int {
	if sex == Male {
		return 1200
	}
	return 800
}

// Evaluate applies the donation rules for every type on target.
// This is pure domain logic: no I/O, and profile and history are never mutated.
//
// Rule priority per type (fail-fast):
//  1. Age gate
//  2. Minimum interval since the reference prior donation
//  3. Annual whole-blood volume cap
func Evaluate(target time.Time, profile Profile, history []Record) (Verdicts, error) {
	if err := checkPreconditions(target, profile, history); err != nil {
		return nil, err
	}

	ordered := chronological(history)
	prior, hasPrior := referencePrior(ordered, target)
	age := AgeOn(profile.BirthDate, target)

	verdicts := make(Verdicts, 0, len(AllTypes()))
	for _, t := range AllTypes() {
		verdicts = append(verdicts, evaluateType(t, target, profile.Sex, age, ordered, prior, hasPrior))
	}
	return verdicts, nil
}

func evaluateType(t DonationType, target time.Time, sex Sex, age int, ordered []Record, prior Record, hasPrior bool) Verdict {
	if age < minAge(t, sex) || age > maxDonorAge {
		return blocked(t, ReasonAgeRestriction, nil)
	}

	if hasPrior {
		next := nextAfterPrior(prior, t, sex)
		if target.Before(next) {
			return blocked(t, ReasonMinimumInterval, &next)
		}
	}

	if t.IsWholeBlood() {
		if next, capped := volumeCapLift(t, target, sex, ordered); capped {
			return blocked(t, ReasonAnnualVolumeCap, &next)
		}
	}

	return available(t)
}

// nextAfterPrior computes when t may follow the reference prior donation.
// The wait is keyed on the prior donation's type; for a whole-blood request after
// whole blood it does not matter which whole-blood type is being requested.
func nextAfterPrior(prior Record, t DonationType, sex Sex) time.Time {
	var weeks int
	switch prior.Type {
	case WholeBlood400, WholeBlood200:
		switch {
		case t == Component:
			weeks = 8
		case prior.Type == WholeBlood400 && sex == Male:
			weeks = 12
		case prior.Type == WholeBlood400:
			weeks = 16
		default:
			weeks = 4
		}
	case Component:
		weeks = 2
	}
	return AddWeeks(prior.Date, weeks)
}

// volumeCapLift reports whether adding t on target would exceed the annual cap
// and, if so, the date the earliest counted donation leaves the window.
//
// The sum uses the open window (target-1y, target) while the lift date is taken
// from the half-open window [target-1y, target). The two differ on the exact
// one-year boundary and must stay that way.
func volumeCapLift(t DonationType, target time.Time, sex Sex, ordered []Record) (time.Time, bool) {
	windowStart := AddYears(target, -1)

	sum := 0
	for _, r := range ordered {
		if r.Type.IsWholeBlood() && r.Date.After(windowStart) && r.Date.Before(target) {
			sum += Volume(r.Type)
		}
	}
	if sum+Volume(t) <= annualCap(sex) {
		return time.Time{}, false
	}

	for _, r := range ordered {
		if r.Type.IsWholeBlood() && !r.Date.Before(windowStart) && r.Date.Before(target) {
			return AddYears(r.Date, 1), true
		}
	}
	return time.Time{}, false
}

// chronological returns a date-ascending copy of history. The sort is stable so
// records sharing a date keep their insertion order.
func chronological(history []Record) []Record {
	ordered := slices.Clone(history)
	slices.SortStableFunc(ordered, func(a, b Record) int {
		return a.Date.Compare(b.Date)
	})
	return ordered
}

// referencePrior returns the latest record dated strictly before target.
func referencePrior(ordered []Record, target time.Time) (Record, bool) {
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i].Date.Before(target) {
			return ordered[i], true
		}
	}
	return Record{}, false
}

func checkPreconditions(target time.Time, profile Profile, history []Record) error {
	if err := ValidateDate(target); err != nil {
		return dErrors.Wrap(err, dErrors.CodePrecondition, "invalid target date")
	}
	if err := ValidateDate(profile.BirthDate); err != nil {
		return dErrors.Wrap(err, dErrors.CodePrecondition, "invalid birth date")
	}
	if profile.BirthDate.After(target) {
		return dErrors.New(dErrors.CodePrecondition, "birth date is after the target date")
	}
	if !profile.Sex.IsValid() {
		return dErrors.New(dErrors.CodePrecondition, "profile sex is not set")
	}
	for _, r := range history {
		if !r.Type.IsValid() {
			return dErrors.New(dErrors.CodePrecondition, "history contains an unknown donation type")
		}
		if err := ValidateDate(r.Date); err != nil {
			return dErrors.Wrap(err, dErrors.CodePrecondition, "history contains an invalid date")
		}
	}
	return nil
}
