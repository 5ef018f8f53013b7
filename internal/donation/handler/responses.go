package handler

import (
	"time"

	"donorcal/internal/donation/models"
	"donorcal/internal/eligibility"
)

type VerdictResponse struct {
	Type         string `json:"type"`
	Available    bool   `json:"available"`
	Reason       string `json:"reason,omitempty"`
	NextEligible string `json:"next_eligible,omitempty"`
	VolumeML     int    `json:"volume_ml"`
}

// EligibilityResponse is the response for GET /eligibility.
type EligibilityResponse struct {
	Date           string            `json:"date"`
	Verdicts       []VerdictResponse `json:"verdicts"`
	AvailableTypes []string          `json:"available_types"`
}

type RecordResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Date      string    `json:"date"`
	Location  string    `json:"location"`
	Notes     string    `json:"notes"`
	Color     string    `json:"color"`
	VolumeML  int       `json:"volume_ml"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListResponse is the response for GET /donations, in insertion order.
type ListResponse struct {
	Donations []RecordResponse `json:"donations"`
}

type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

func toEligibilityResponse(date time.Time, verdicts eligibility.Verdicts) EligibilityResponse {
	resp := EligibilityResponse{
		Date:           eligibility.FormatDate(date),
		Verdicts:       make([]VerdictResponse, 0, len(verdicts)),
		AvailableTypes: make([]string, 0, len(verdicts)),
	}
	for _, v := range verdicts {
		vr := VerdictResponse{
			Type:      string(v.Type),
			Available: v.Available,
			Reason:    string(v.Reason),
			VolumeML:  eligibility.Volume(v.Type),
		}
		if v.NextEligible != nil {
			vr.NextEligible = eligibility.FormatDate(*v.NextEligible)
		}
		resp.Verdicts = append(resp.Verdicts, vr)
	}
	for _, t := range verdicts.AvailableTypes() {
		resp.AvailableTypes = append(resp.AvailableTypes, string(t))
	}
	return resp
}

func toRecordResponse(r *models.Record) RecordResponse {
	return RecordResponse{
		ID:        r.ID.String(),
		Type:      string(r.Type),
		Date:      eligibility.FormatDate(r.Date),
		Location:  r.Location,
		Notes:     r.Notes,
		Color:     r.Color(),
		VolumeML:  r.Volume(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toListResponse(records []*models.Record) ListResponse {
	resp := ListResponse{Donations: make([]RecordResponse, 0, len(records))}
	for _, r := range records {
		resp.Donations = append(resp.Donations, toRecordResponse(r))
	}
	return resp
}
