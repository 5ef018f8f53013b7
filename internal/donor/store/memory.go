package store

import (
	"context"
	"sync"

	"donorcal/internal/donor/models"
	id "donorcal/pkg/domain"
	"donorcal/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	profiles map[id.DonorID]models.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[id.DonorID]models.Profile)}
}

func (s *InMemory) Get(_ context.Context, donorID id.DonorID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemory) Save(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.DonorID] = *profile
	return nil
}
