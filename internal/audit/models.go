package audit

import "time"

// Actions recorded against a donor's history.
const (
	ActionDonationRecorded = "donation_recorded"
	ActionDonationUpdated  = "donation_updated"
	ActionDonationDeleted  = "donation_deleted"
	ActionProfileUpdated   = "profile_updated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	DonorID   string    `json:"donor_id"`
	RecordID  string    `json:"record_id,omitempty"`
	Type      string    `json:"type,omitempty"`
	Date      string    `json:"date,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
