package session

import (
	"sync"

	"github.com/evep-health/evep/internal/entity"
)

// MemoryStore keeps the session in process memory. It is the default store
// for services and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	sess entity.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sess.AccessToken
}

func (s *MemoryStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sess.RefreshToken
}

func (s *MemoryStore) SessionHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sess.SessionHash
}

func (s *MemoryStore) User() *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sess.User == nil {
		return nil
	}

	user := *s.sess.User

	return &user
}

func (s *MemoryStore) Session() entity.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.sess
	if s.sess.User != nil {
		user := *s.sess.User
		sess.User = &user
	}

	return sess
}

func (s *MemoryStore) SetSession(tokens entity.UserTokens, user entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = entity.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SessionHash:  tokens.SessionHash,
		User:         &user,
	}

	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = entity.Session{}

	return nil
}

func (s *MemoryStore) IsTokenExpired() bool {
	return tokenExpiringWithin(s.Token(), ExpiryMargin)
}
