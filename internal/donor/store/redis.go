package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"donorcal/internal/donor/models"
	"donorcal/internal/eligibility"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/sentinel"
)

const profileKeyPrefix = "donor:profile:"

// RedisStore keeps profiles as JSON values, one key per donor.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type redisProfile struct {
	BirthDate string    `json:"birth_date"`
	Sex       string    `json:"sex"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *RedisStore) Get(ctx context.Context, donorID id.DonorID) (*models.Profile, error) {
	raw, err := s.client.Get(ctx, profileKey(donorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	var stored redisProfile
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	birth, err := eligibility.ParseDate(stored.BirthDate)
	if err != nil {
		return nil, fmt.Errorf("decode profile birth date: %w", err)
	}
	return &models.Profile{
		DonorID:   donorID,
		BirthDate: birth,
		Sex:       eligibility.Sex(stored.Sex),
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, profile *models.Profile) error {
	raw, err := json.Marshal(redisProfile{
		BirthDate: eligibility.FormatDate(profile.BirthDate),
		Sex:       string(profile.Sex),
		UpdatedAt: profile.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.client.Set(ctx, profileKey(profile.DonorID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func profileKey(donorID id.DonorID) string {
	return profileKeyPrefix + donorID.String()
}
