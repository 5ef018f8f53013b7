package handler

import (
	"time"

	"donorcal/internal/donor/models"
	"donorcal/internal/eligibility"
)

type ProfileResponse struct {
	DonorID   string    `json:"donor_id"`
	BirthDate string    `json:"birth_date"`
	Sex       string    `json:"sex"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProfileResponse(p *models.Profile) ProfileResponse {
	return ProfileResponse{
		DonorID:   p.DonorID.String(),
		BirthDate: eligibility.FormatDate(p.BirthDate),
		Sex:       string(p.Sex),
		UpdatedAt: p.UpdatedAt,
	}
}
