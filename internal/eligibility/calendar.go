package eligibility

import (
	"time"

	dErrors "donorcal/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// Date builds a calendar date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be formatted as YYYY-MM-DD")
	}
	return d, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// Truncate drops the time of day, keeping the date as seen in t's location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ValidateDate rejects values that carry a time of day or a non-UTC location.
func ValidateDate(d time.Time) error {
	if d.IsZero() {
		return dErrors.New(dErrors.CodePrecondition, "date is required")
	}
	if d.Location() != time.UTC || !d.Equal(Truncate(d)) {
		return dErrors.New(dErrors.CodePrecondition, "date must be a calendar date at midnight UTC")
	}
	return nil
}

// AddYears shifts d by n years. A day that does not exist in the target month
// is clipped to the month's last day (Feb 29 + 1y = Feb 28).
func AddYears(d time.Time, n int) time.Time {
	year := d.Year() + n
	day := d.Day()
	if last := daysIn(d.Month(), year); day > last {
		day = last
	}
	return Date(year, d.Month(), day)
}

// AddWeeks shifts d by n seven-day weeks.
func AddWeeks(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, 7*n)
}

// AgeOn returns the whole years elapsed between birth and on.
func AgeOn(birth, on time.Time) int {
	years := on.Year() - birth.Year()
	if AddYears(birth, years).After(on) {
		years--
	}
	return years
}

func daysIn(m time.Month, year int) int {
	return Date(year, m+1, 0).Day()
}
