package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"donorcal/internal/donation/models"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	donor id.DonorID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.donor = id.DonorID(uuid.New())
}

func (s *InMemoryStoreSuite) newRecord(t eligibility.DonationType, day int) *models.Record {
	now := time.Now()
	return &models.Record{
		ID:        id.NewRecordID(),
		DonorID:   s.donor,
		Type:      t,
		Date:      eligibility.Date(2024, time.January, day),
		Location:  "新宿東口献血ルーム",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *InMemoryStoreSuite) ids(records []*models.Record) []id.RecordID {
	out := make([]id.RecordID, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func (s *InMemoryStoreSuite) TestAppendAndFind() {
	s.Run("assigns increasing sequence numbers", func() {
		first := s.newRecord(eligibility.Component, 1)
		second := s.newRecord(eligibility.WholeBlood400, 1)
		s.Require().NoError(s.store.Append(s.ctx, first))
		s.Require().NoError(s.store.Append(s.ctx, second))
		s.Less(first.Seq, second.Seq)
	})

	s.Run("rejects a duplicate id", func() {
		r := s.newRecord(eligibility.Component, 2)
		s.Require().NoError(s.store.Append(s.ctx, r))
		s.ErrorIs(s.store.Append(s.ctx, r), sentinel.ErrConflict)
	})

	s.Run("finds only within the owning donor", func() {
		r := s.newRecord(eligibility.WholeBlood200, 3)
		s.Require().NoError(s.store.Append(s.ctx, r))

		found, err := s.store.FindByID(s.ctx, s.donor, r.ID)
		s.Require().NoError(err)
		s.Equal(r.Type, found.Type)

		_, err = s.store.FindByID(s.ctx, id.DonorID(uuid.New()), r.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestReplaceMovesRecordToEnd() {
	a := s.newRecord(eligibility.Component, 1)
	b := s.newRecord(eligibility.WholeBlood400, 1)
	c := s.newRecord(eligibility.WholeBlood200, 5)
	for _, r := range []*models.Record{a, b, c} {
		s.Require().NoError(s.store.Append(s.ctx, r))
	}

	edited := *a
	edited.Notes = "edited"
	s.Require().NoError(s.store.Replace(s.ctx, &edited))
	s.Greater(edited.Seq, c.Seq)

	history, err := s.store.ListByDonor(s.ctx, s.donor)
	s.Require().NoError(err)
	s.Equal([]id.RecordID{b.ID, c.ID, a.ID}, s.ids(history))
	s.Equal("edited", history[2].Notes)

	missing := s.newRecord(eligibility.Component, 9)
	s.ErrorIs(s.store.Replace(s.ctx, missing), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDelete() {
	a := s.newRecord(eligibility.Component, 1)
	b := s.newRecord(eligibility.Component, 2)
	c := s.newRecord(eligibility.Component, 3)
	for _, r := range []*models.Record{a, b, c} {
		s.Require().NoError(s.store.Append(s.ctx, r))
	}

	s.Require().NoError(s.store.Delete(s.ctx, s.donor, b.ID))
	s.ErrorIs(s.store.Delete(s.ctx, s.donor, b.ID), sentinel.ErrNotFound)

	n, err := s.store.DeleteMany(s.ctx, s.donor, []id.RecordID{a.ID, b.ID, id.NewRecordID()})
	s.Require().NoError(err)
	s.Equal(1, n)

	history, err := s.store.ListByDonor(s.ctx, s.donor)
	s.Require().NoError(err)
	s.Equal([]id.RecordID{c.ID}, s.ids(history))
}

func (s *InMemoryStoreSuite) TestListReturnsCopies() {
	r := s.newRecord(eligibility.WholeBlood400, 1)
	s.Require().NoError(s.store.Append(s.ctx, r))

	history, err := s.store.ListByDonor(s.ctx, s.donor)
	s.Require().NoError(err)
	history[0].Location = "mutated"

	again, err := s.store.ListByDonor(s.ctx, s.donor)
	s.Require().NoError(err)
	s.Equal("新宿東口献血ルーム", again[0].Location)

	empty, err := s.store.ListByDonor(s.ctx, id.DonorID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *InMemoryStoreSuite) TestWithinDonorLockSerialisesWriters() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.store.WithinDonorLock(s.ctx, s.donor, func(context.Context) error {
				mu.Lock()
				inside++
				overlap = overlap || inside > 1
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	s.False(overlap)

	boom := errors.New("boom")
	s.ErrorIs(s.store.WithinDonorLock(s.ctx, s.donor, func(context.Context) error { return boom }), boom)
}
