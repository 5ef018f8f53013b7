package models

import (
	"time"

	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
)

// Display colours used by calendar clients.
const (
	ColorComponent  = "#4CAF50"
	ColorWholeBlood = "#FF4C4C"
)

// Record is a single donation in a donor's history.
//
// Invariants:
//   - Date is a calendar date (midnight UTC) and is fixed after creation
//   - Location is non-empty
//   - Seq is assigned by the store; a higher Seq means the record was appended
//     (or last edited) later, which breaks ties between records on the same date
type Record struct {
	ID        id.RecordID              `json:"id"`
	DonorID   id.DonorID               `json:"donor_id"`
	Type      eligibility.DonationType `json:"type"`
	Date      time.Time                `json:"date"`
	Location  string                   `json:"location"`
	Notes     string                   `json:"notes"`
	Seq       int64                    `json:"seq"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Color is derived from the type and never stored.
func (r *Record) Color() string {
	if r.Type == eligibility.Component {
		return ColorComponent
	}
	return ColorWholeBlood
}

func (r *Record) Volume() int {
	return eligibility.Volume(r.Type)
}

// ToEngine projects the record onto the fields the eligibility rules read.
func (r *Record) ToEngine() eligibility.Record {
	return eligibility.Record{Type: r.Type, Date: r.Date}
}

// History converts records, already in insertion order, into an engine snapshot.
func History(records []*Record) []eligibility.Record {
	out := make([]eligibility.Record, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToEngine())
	}
	return out
}
