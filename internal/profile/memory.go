package profile

import (
	"context"
	"sync"
	"time"

	apperrors "smart-dealer/internal/common/errors"
)

// MemoryStore keeps profiles in process. Used when postgres is not configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, apperrors.NewProfileNotFoundError(userID)
	}
	return p.clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.clone()
	p.UpdatedAt = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}
