package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/evep-health/evep/internal/entity"
)

const (
	keyAccessToken  = "evep_access_token"
	keyRefreshToken = "evep_refresh_token"
	keySessionHash  = "evep_session_hash"
	keyUser         = "evep_user"
)

// legacyKeys are pre-rename key names. Clear removes them so a key-naming
// migration never leaves a stale partial session behind.
var legacyKeys = []string{"access_token", "refresh_token", "token", "user"}

// FileStore persists the session as a JSON key/value document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Token() string        { return s.read(keyAccessToken) }
func (s *FileStore) RefreshToken() string { return s.read(keyRefreshToken) }
func (s *FileStore) SessionHash() string  { return s.read(keySessionHash) }

func (s *FileStore) User() *entity.User {
	raw := s.read(keyUser)
	if raw == "" {
		return nil
	}

	var user entity.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// Corrupt persisted state is treated as logged out, never a crash.
		_ = s.Clear()
		return nil
	}

	return &user
}

func (s *FileStore) Session() entity.Session {
	return entity.Session{
		AccessToken:  s.Token(),
		RefreshToken: s.RefreshToken(),
		SessionHash:  s.SessionHash(),
		User:         s.User(),
	}
}

func (s *FileStore) SetSession(tokens entity.UserTokens, user entity.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	doc[keyAccessToken] = tokens.AccessToken
	doc[keyRefreshToken] = tokens.RefreshToken
	doc[keySessionHash] = tokens.SessionHash
	doc[keyUser] = string(userJSON)

	return s.save(doc)
}

// Clear removes every persisted key, current and legacy, and is idempotent.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()

	delete(doc, keyAccessToken)
	delete(doc, keyRefreshToken)
	delete(doc, keySessionHash)
	delete(doc, keyUser)

	for _, key := range legacyKeys {
		delete(doc, key)
	}

	if len(doc) == 0 {
		err := os.Remove(s.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", err)
		}

		return nil
	}

	return s.save(doc)
}

func (s *FileStore) IsTokenExpired() bool {
	return tokenExpiringWithin(s.Token(), ExpiryMargin)
}

func (s *FileStore) read(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()[key]
}

// load returns the on-disk document; unreadable or corrupt files yield an
// empty document rather than an error.
func (s *FileStore) load() map[string]string {
	doc := map[string]string{}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}

	if err := json.Unmarshal(b, &doc); err != nil {
		return map[string]string{}
	}

	return doc
}

func (s *FileStore) save(doc map[string]string) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal session document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	if err := os.Rename(tmp, filepath.Clean(s.path)); err != nil {
		return fmt.Errorf("rename session file: %w", err)
	}

	return nil
}
