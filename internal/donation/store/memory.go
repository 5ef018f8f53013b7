package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"donorcal/internal/donation/models"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/sentinel"
)

// InMemory keeps each donor's history as a slice in insertion order.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.DonorID][]*models.Record
	seq     int64

	donorLocks sync.Map // id.DonorID -> *sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.DonorID][]*models.Record)}
}

// WithinDonorLock serialises fn with other writers for the same donor.
func (s *InMemory) WithinDonorLock(ctx context.Context, donorID id.DonorID, fn func(ctx context.Context) error) error {
	lock, _ := s.donorLocks.LoadOrStore(donorID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn(ctx)
}

func (s *InMemory) Append(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[record.DonorID] {
		if r.ID == record.ID {
			return fmt.Errorf("append record %s: %w", record.ID, sentinel.ErrConflict)
		}
	}
	s.seq++
	record.Seq = s.seq
	stored := *record
	s.records[record.DonorID] = append(s.records[record.DonorID], &stored)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, donorID id.DonorID, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(donorID, recordID)
	if i < 0 {
		return nil, sentinel.ErrNotFound
	}
	found := *s.records[donorID][i]
	return &found, nil
}

// Replace overwrites the record and moves it to the end of the donor's history.
func (s *InMemory) Replace(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(record.DonorID, record.ID)
	if i < 0 {
		return sentinel.ErrNotFound
	}
	s.seq++
	record.Seq = s.seq
	stored := *record
	history := slices.Delete(s.records[record.DonorID], i, i+1)
	s.records[record.DonorID] = append(history, &stored)
	return nil
}

func (s *InMemory) Delete(_ context.Context, donorID id.DonorID, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(donorID, recordID)
	if i < 0 {
		return sentinel.ErrNotFound
	}
	s.records[donorID] = slices.Delete(s.records[donorID], i, i+1)
	return nil
}

// DeleteMany removes every listed record that exists and reports how many were removed.
func (s *InMemory) DeleteMany(_ context.Context, donorID id.DonorID, recordIDs []id.RecordID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.records[donorID])
	s.records[donorID] = slices.DeleteFunc(s.records[donorID], func(r *models.Record) bool {
		return slices.Contains(recordIDs, r.ID)
	})
	return before - len(s.records[donorID]), nil
}

func (s *InMemory) ListByDonor(_ context.Context, donorID id.DonorID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[donorID]
	out := make([]*models.Record, 0, len(history))
	for _, r := range history {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (s *InMemory) indexOf(donorID id.DonorID, recordID id.RecordID) int {
	return slices.IndexFunc(s.records[donorID], func(r *models.Record) bool {
		return r.ID == recordID
	})
}
