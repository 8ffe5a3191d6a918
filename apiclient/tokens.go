package apiclient

import "sync"

// Browser hosts persist the session under these storage keys so a page reload
// picks it back up. Storage backed TokenStore implementations should reuse
// them.
const (
	AccessTokenKey  = "inchronicle_access_token"
	RefreshTokenKey = "inchronicle_refresh_token"
)

// TokenStore holds the bearer pair for the active session. Implementations
// must be safe for concurrent use.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string)
	Clear()
}

// MemoryTokenStore keeps the pair in process memory. It is the default store
// and the right one for CLI and test hosts.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// AccessToken implements TokenStore.
func (s *MemoryTokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken implements TokenStore.
func (s *MemoryTokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetTokens implements TokenStore.
func (s *MemoryTokenStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

// Clear implements TokenStore.
func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}
