// Package token holds the credentials of the active client session.
//
// The Store is the single owner of the access token, the refresh token and
// the signed-in user's identity. The access token is cached in memory (inside
// a memguard enclave) and written through to a durable storage.Repository so
// that a restarted process can resume the session. The refresh token and the
// user identity live only in durable storage.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/optiva/internal/util"
	"github.com/jmcleod/optiva/storage"
)

// Durable record keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// ErrCorruptUser is returned when the stored user identity cannot be decoded.
var ErrCorruptUser = errors.New("stored user identity is corrupt")

// User is the minimal identity persisted alongside the tokens.
type User struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Store is a write-through token cache over a storage.Repository.
// All methods are safe for concurrent use.
type Store struct {
	repo    storage.Repository
	profile string
	key     []byte

	mu     sync.RWMutex
	access *memguard.Enclave
}

// Option configures a Store.
type Option func(*Store)

// WithKey seals every record with AES-256-GCM under the given 32-byte key.
// Without a key records are stored raw.
func WithKey(key []byte) Option {
	return func(s *Store) {
		s.key = util.CopyBytes(key)
	}
}

// New returns a Store for the given profile.
func New(repo storage.Repository, profile string, opts ...Option) *Store {
	s := &Store{repo: repo, profile: profile}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the storage profile the store is bound to.
func (s *Store) Profile() string {
	return s.profile
}

// AccessToken returns the cached access token, falling back to durable
// storage before the cache is warm. An empty string means no token.
func (s *Store) AccessToken() (string, error) {
	s.mu.RLock()
	enclave := s.access
	s.mu.RUnlock()
	if enclave != nil {
		return openEnclave(enclave)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.access != nil {
		return openEnclave(s.access)
	}
	tok, err := s.read(KeyAccessToken)
	if err != nil || tok == "" {
		return "", err
	}
	s.access = memguard.NewEnclave([]byte(tok))
	return tok, nil
}

// SetAccessToken replaces the access token. An empty token removes it.
func (s *Store) SetAccessToken(tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok == "" {
		s.access = nil
		return s.repo.Delete(s.profile, KeyAccessToken)
	}
	if err := s.write(KeyAccessToken, []byte(tok)); err != nil {
		return err
	}
	s.access = memguard.NewEnclave([]byte(tok))
	return nil
}

// RefreshToken returns the durable refresh token, or "" if none is stored.
func (s *Store) RefreshToken() (string, error) {
	return s.read(KeyRefreshToken)
}

// SetRefreshToken replaces the refresh token. An empty token removes it.
func (s *Store) SetRefreshToken(tok string) error {
	if tok == "" {
		return s.repo.Delete(s.profile, KeyRefreshToken)
	}
	return s.write(KeyRefreshToken, []byte(tok))
}

// SetTokens stores a new token pair in a single durable batch.
func (s *Store) SetTokens(access, refresh string) error {
	return s.setTokens(access, refresh, nil)
}

// SetSession stores a token pair and the user identity in a single durable
// batch, so a session is never persisted without its identity.
func (s *Store) SetSession(access, refresh string, u *User) error {
	if u == nil {
		return errors.New("storing session: nil user")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return s.setTokens(access, refresh, data)
}

func (s *Store) setTokens(access, refresh string, user []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.Batch(s.profile, func(tx storage.BatchTx) error {
		if err := s.batchPut(tx, KeyAccessToken, access); err != nil {
			return err
		}
		if err := s.batchPut(tx, KeyRefreshToken, refresh); err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		return s.batchPut(tx, KeyUser, string(user))
	})
	if err != nil {
		return fmt.Errorf("storing tokens: %w", err)
	}
	if access == "" {
		s.access = nil
	} else {
		s.access = memguard.NewEnclave([]byte(access))
	}
	return nil
}

// Clear removes both tokens from memory and durable storage. It is safe to
// call when no session exists.
func (s *Store) Clear() error {
	return s.clear(KeyAccessToken, KeyRefreshToken)
}

// Reset removes the tokens and the stored user identity.
func (s *Store) Reset() error {
	return s.clear(KeyAccessToken, KeyRefreshToken, KeyUser)
}

// clear drops the cached access token only once the durable batch has
// succeeded; a failed clear leaves the session as it was.
func (s *Store) clear(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.repo.Batch(s.profile, func(tx storage.BatchTx) error {
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing tokens: %w", err)
	}
	s.access = nil
	return nil
}

// User returns the stored identity, or nil if none is stored.
func (s *Store) User() (*User, error) {
	raw, err := s.read(KeyUser)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptUser, err)
	}
	return &u, nil
}

// SetUser persists the user identity.
func (s *Store) SetUser(u *User) error {
	if u == nil {
		return s.ClearUser()
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.write(KeyUser, data)
}

// ClearUser removes the stored identity.
func (s *Store) ClearUser() error {
	return s.repo.Delete(s.profile, KeyUser)
}

func (s *Store) read(key string) (string, error) {
	env, err := s.repo.Get(s.profile, key)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrProfileNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	data, err := storage.OpenRecord(s.key, env, storage.RecordAAD(s.profile, key))
	if err != nil {
		if key == KeyUser {
			return "", fmt.Errorf("%w: %v", ErrCorruptUser, err)
		}
		return "", fmt.Errorf("opening %s: %w", key, err)
	}
	defer util.WipeBytes(data)
	return string(data), nil
}

func (s *Store) seal(key string, value []byte) (*storage.Envelope, error) {
	if s.key == nil {
		return storage.RawRecord(value), nil
	}
	return storage.SealRecord(s.key, value, storage.RecordAAD(s.profile, key))
}

func (s *Store) write(key string, value []byte) error {
	env, err := s.seal(key, value)
	if err != nil {
		return fmt.Errorf("sealing %s: %w", key, err)
	}
	if err := s.repo.Put(s.profile, key, env); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) batchPut(tx storage.BatchTx, key, value string) error {
	if value == "" {
		return tx.Delete(key)
	}
	env, err := s.seal(key, []byte(value))
	if err != nil {
		return err
	}
	return tx.Put(key, env)
}

func openEnclave(e *memguard.Enclave) (string, error) {
	buf, err := e.Open()
	if err != nil {
		return "", fmt.Errorf("opening access token enclave: %w", err)
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}
