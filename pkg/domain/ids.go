// Package domain holds the typed identifiers shared across modules.
//
// IDs are distinct named types over uuid.UUID so a RecordID can never be passed
// where a DonorID is expected. Parsing happens once at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "donorcal/pkg/domain-errors"
)

type (
	DonorID  uuid.UUID
	RecordID uuid.UUID
)

// NewRecordID returns a fresh random record identifier.
func NewRecordID() RecordID {
	return RecordID(uuid.New())
}

func ParseDonorID(s string) (DonorID, error) {
	u, err := parseUUID(s, "donor_id")
	return DonorID(u), err
}

func ParseRecordID(s string) (RecordID, error) {
	u, err := parseUUID(s, "record_id")
	return RecordID(u), err
}

func (id DonorID) String() string  { return uuid.UUID(id).String() }
func (id DonorID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) String() string { return uuid.UUID(id).String() }
func (id RecordID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id RecordID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DonorID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, field+" must not be the nil UUID")
	}
	return u, nil
}
