//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"donorcal/internal/donor/models"
	"donorcal/internal/donor/store"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/sentinel"
	"donorcal/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	donor := id.DonorID(uuid.New())
	profile := &models.Profile{
		DonorID:   donor,
		BirthDate: eligibility.Date(2008, time.February, 29),
		Sex:       eligibility.Female,
		UpdatedAt: time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Save(ctx, profile))

	got, err := s.store.Get(ctx, donor)
	s.Require().NoError(err)
	s.Equal(profile.BirthDate, got.BirthDate)
	s.Equal(profile.Sex, got.Sex)
	s.True(profile.UpdatedAt.Equal(got.UpdatedAt))

	raw, err := s.redis.Client.Get(ctx, "donor:profile:"+donor.String()).Result()
	s.Require().NoError(err)
	s.Contains(raw, `"birth_date":"2008-02-29"`)
}

func (s *RedisStoreSuite) TestMissingProfile() {
	_, err := s.store.Get(context.Background(), id.DonorID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSaveOverwrites() {
	ctx := context.Background()
	donor := id.DonorID(uuid.New())
	p := &models.Profile{DonorID: donor, BirthDate: eligibility.Date(1990, time.May, 1), Sex: eligibility.Male}
	s.Require().NoError(s.store.Save(ctx, p))
	p.Sex = eligibility.Female
	s.Require().NoError(s.store.Save(ctx, p))

	got, err := s.store.Get(ctx, donor)
	s.Require().NoError(err)
	s.Equal(eligibility.Female, got.Sex)
}
