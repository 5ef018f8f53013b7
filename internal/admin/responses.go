package admin

import "donorcal/internal/audit"

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	DonorID     string `json:"donor_id"`
}

type AuditTrailResponse struct {
	DonorID string        `json:"donor_id"`
	Events  []audit.Event `json:"events"`
}
