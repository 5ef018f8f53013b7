package handler

import (
	"strings"
	"time"

	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
	platformstrings "donorcal/pkg/platform/strings"
)

const (
	maxLocationLength = 200
	maxNotesLength    = 2000
	maxBulkDelete     = 500
)

// CreateRequest is the body for POST /donations.
type CreateRequest struct {
	Type     string `json:"type"`
	Date     string `json:"date"`
	Location string `json:"location"`
	Notes    string `json:"notes"`

	parsedType eligibility.DonationType
	parsedDate time.Time
}

// Validate implements httputil.Validatable.
func (r *CreateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Location) > maxLocationLength {
		return dErrors.New(dErrors.CodeValidation, "location is too long")
	}
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes are too long")
	}

	r.Location = strings.TrimSpace(r.Location)
	if r.Location == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}

	t, err := eligibility.ParseDonationType(strings.TrimSpace(r.Type))
	if err != nil {
		return err
	}
	r.parsedType = t

	date, err := eligibility.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return err
	}
	r.parsedDate = date
	return nil
}

// UpdateRequest is the body for PATCH /donations/{id}. Omitted fields stay unchanged.
type UpdateRequest struct {
	Type     *string `json:"type"`
	Location *string `json:"location"`
	Notes    *string `json:"notes"`

	parsedType *eligibility.DonationType
}

// Validate implements httputil.Validatable.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Type == nil && r.Location == nil && r.Notes == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of type, location or notes is required")
	}
	if r.Location != nil && len(*r.Location) > maxLocationLength {
		return dErrors.New(dErrors.CodeValidation, "location is too long")
	}
	if r.Notes != nil && len(*r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes are too long")
	}
	if r.Type != nil {
		t, err := eligibility.ParseDonationType(strings.TrimSpace(*r.Type))
		if err != nil {
			return err
		}
		r.parsedType = &t
	}
	return nil
}

// BulkDeleteRequest is the body for POST /donations/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`

	parsedIDs []id.RecordID
}

// Validate implements httputil.Validatable.
func (r *BulkDeleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.IDs) > maxBulkDelete {
		return dErrors.New(dErrors.CodeValidation, "too many ids")
	}
	ids := platformstrings.DedupeAndTrimLower(r.IDs)
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeValidation, "ids must not be empty")
	}
	r.parsedIDs = make([]id.RecordID, 0, len(ids))
	for _, raw := range ids {
		rid, err := id.ParseRecordID(raw)
		if err != nil {
			return err
		}
		r.parsedIDs = append(r.parsedIDs, rid)
	}
	return nil
}
