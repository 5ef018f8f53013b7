package admin

import (
	id "donorcal/pkg/domain"
	dErrors "donorcal/pkg/domain-errors"
)

const maxTokenTTLSeconds = 30 * 24 * 60 * 60

type TokenRequest struct {
	DonorID    string `json:"donor_id"`
	TTLSeconds int    `json:"ttl_seconds"`

	donorID id.DonorID
}

func (r *TokenRequest) Validate() error {
	if r.TTLSeconds < 0 || r.TTLSeconds > maxTokenTTLSeconds {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be between 0 and 2592000")
	}
	if r.DonorID == "" {
		return nil
	}
	donorID, err := id.ParseDonorID(r.DonorID)
	if err != nil {
		return err
	}
	r.donorID = donorID
	return nil
}
