package audit

import (
	"context"
	"sync"
)

// MemorySink keeps events in process, mainly for tests and local runs.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListByDonor returns the donor's events in emission order.
func (s *MemorySink) ListByDonor(_ context.Context, donorID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.DonorID == donorID {
			out = append(out, e)
		}
	}
	return out, nil
}
