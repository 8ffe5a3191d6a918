package onboarding

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/inchronicle/go-stories/pkg/types"
)

// MemoryStore is an in-process OnboardingStore. It serves as the injectable
// fallback layer under the bun store and backs the runnable examples.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]types.OnboardingRecord
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]types.OnboardingRecord)}
}

var _ types.OnboardingStore = (*MemoryStore)(nil)

// GetOnboarding returns the stored session, or nil when none exists.
func (s *MemoryStore) GetOnboarding(_ context.Context, userID uuid.UUID) (*types.OnboardingRecord, error) {
	if userID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	record.Payload = cloneMap(record.Payload)
	return &record, nil
}

// SetOnboarding stores a copy of the session.
func (s *MemoryStore) SetOnboarding(_ context.Context, record types.OnboardingRecord) (*types.OnboardingRecord, error) {
	if record.UserID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	stored := record
	stored.Payload = cloneMap(record.Payload)
	s.mu.Lock()
	s.records[record.UserID] = stored
	s.mu.Unlock()
	out := stored
	out.Payload = cloneMap(stored.Payload)
	return &out, nil
}

// ClearOnboarding drops the session. Clearing an absent session is a no-op.
func (s *MemoryStore) ClearOnboarding(_ context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return types.ErrUserIDRequired
	}
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
	return nil
}
