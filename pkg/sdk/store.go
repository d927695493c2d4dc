package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// Keys used in Storage.
const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Storage is durable key/value persistence scoped to a single user profile.
// Get reports ok=false for missing keys; Delete of a missing key is not an error.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// CredentialStore wraps Storage with typed accessors for the session's token
// material. It holds no logic beyond (de)serialization.
type CredentialStore struct {
	storage Storage
}

// NewCredentialStore returns a CredentialStore backed by storage.
func NewCredentialStore(storage Storage) *CredentialStore {
	return &CredentialStore{storage: storage}
}

// Token returns the stored access token, or "" when none is stored.
func (s *CredentialStore) Token() (string, error) {
	v, _, err := s.storage.Get(KeyAuthToken)
	return v, err
}

// RefreshToken returns the stored refresh token, or "" when none is stored.
func (s *CredentialStore) RefreshToken() (string, error) {
	v, _, err := s.storage.Get(KeyRefreshToken)
	return v, err
}

// User returns the cached user record. A missing or unreadable record yields nil.
func (s *CredentialStore) User() (*User, error) {
	raw, ok, err := s.storage.Get(KeyUser)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

// Load returns everything stored. The result is nil when no token is stored.
func (s *CredentialStore) Load() (*Credentials, error) {
	token, err := s.Token()
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	refresh, err := s.RefreshToken()
	if err != nil {
		return nil, fmt.Errorf("read refresh token: %w", err)
	}
	user, err := s.User()
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &Credentials{AccessToken: token, RefreshToken: refresh, User: user}, nil
}

// Save persists token, refresh token and user in one call.
func (s *CredentialStore) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("credentials are required")
	}
	if err := s.storage.Set(KeyAuthToken, creds.AccessToken); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := s.storage.Set(KeyRefreshToken, creds.RefreshToken); err != nil {
		return fmt.Errorf("write refresh token: %w", err)
	}
	return s.SetUser(creds.User)
}

// SetUser replaces the cached user record.
func (s *CredentialStore) SetUser(u *User) error {
	if u == nil {
		return s.storage.Delete(KeyUser)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.storage.Set(KeyUser, string(data)); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}

// Clear removes every key the store owns. All keys are attempted even if one fails.
func (s *CredentialStore) Clear() error {
	var errs []error
	for _, key := range []string{KeyAuthToken, KeyRefreshToken, KeyUser} {
		if err := s.storage.Delete(key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// TokenSource exposes the stored access token as an oauth2.TokenSource so that
// authenticated HTTP clients always send the current token.
func (s *CredentialStore) TokenSource() oauth2.TokenSource {
	return storeTokenSource{store: s}
}

type storeTokenSource struct {
	store *CredentialStore
}

func (ts storeTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.store.Token()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// MemoryStorage is an in-process Storage, useful for embedding and tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Len reports how many keys are stored.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
