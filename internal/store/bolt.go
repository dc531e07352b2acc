// Package store persists client state: token material (sealed at rest),
// the cached repository list, and session metadata. Semantics are plain
// last-writer-wins key-value.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/readmeai/readmectl/internal/model"
	"go.etcd.io/bbolt"
)

const (
	bucketAuth    = "auth"    // key: "tokens" -> sealed AuthTokens JSON
	bucketCache   = "cache"   // key: "repositories" -> RepoCache JSON
	bucketSession = "session" // key: session fields -> JSON
)

const tokensKey = "tokens"

// Store is the bbolt-backed client state store.
type Store struct {
	db      *bbolt.DB
	sealKey []byte
}

// DefaultDir returns the per-user state directory, creating it if needed.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}

	dir := filepath.Join(home, ".readmectl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}

	return dir, nil
}

// Open opens (or creates) the store in dir.
func Open(dir string) (*Store, error) {
	sealKey, err := loadOrCreateSealKey(dir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "readmectl.bolt")

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketAuth, bucketCache, bucketSession} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Store{db: db, sealKey: sealKey}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store is usable.
func (s *Store) Ping() error {
	return s.db.View(func(tx *bbolt.Tx) error { return nil })
}

// Tokens returns the stored token material, or zero tokens when none are
// stored.
func (s *Store) Tokens() (model.AuthTokens, error) {
	var sealed []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketAuth)).Get([]byte(tokensKey))
		if v != nil {
			sealed = append(sealed, v...)
		}

		return nil
	})
	if err != nil {
		return model.AuthTokens{}, err
	}

	if sealed == nil {
		return model.AuthTokens{}, nil
	}

	plaintext, err := open(s.sealKey, sealed)
	if err != nil {
		return model.AuthTokens{}, fmt.Errorf("unseal tokens: %w", err)
	}

	var tokens model.AuthTokens
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return model.AuthTokens{}, err
	}

	return tokens, nil
}

// SetTokens seals and stores token material.
func (s *Store) SetTokens(tokens model.AuthTokens) error {
	plaintext, err := json.Marshal(&tokens)
	if err != nil {
		return err
	}

	sealed, err := seal(s.sealKey, plaintext)
	if err != nil {
		return fmt.Errorf("seal tokens: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketAuth)).Put([]byte(tokensKey), sealed)
	})
}

// ClearTokens removes stored token material.
func (s *Store) ClearTokens() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketAuth)).Delete([]byte(tokensKey))
	})
}

// RepoCache returns the cached repository list, or an empty cache when
// none is stored.
func (s *Store) RepoCache() (model.RepoCache, error) {
	var cache model.RepoCache

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketCache)).Get([]byte("repositories"))
		if v == nil {
			return nil
		}

		return json.Unmarshal(v, &cache)
	})

	return cache, err
}

// SetRepoCache stores the repository list with its fetch timestamp.
func (s *Store) SetRepoCache(cache model.RepoCache) error {
	data, err := json.Marshal(&cache)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketCache)).Put([]byte("repositories"), data)
	})
}

// ClearAll wipes tokens, cache and session state. Used on logout and on a
// forced logout after a 401.
func (s *Store) ClearAll() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketAuth, bucketCache, bucketSession} {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}

			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}

		return nil
	})
}

// SessionKeyUser is the session bucket key holding the UserSession record.
const SessionKeyUser = "user_session"

// UserSession returns the persisted login metadata. The second return is
// false when no session record exists.
func (s *Store) UserSession() (model.UserSession, bool, error) {
	raw, err := s.SessionValue(SessionKeyUser)
	if err != nil || raw == nil {
		return model.UserSession{}, false, err
	}

	var session model.UserSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return model.UserSession{}, false, fmt.Errorf("decode user session: %w", err)
	}

	return session, true, nil
}

// SetUserSession stores the login metadata.
func (s *Store) SetUserSession(session model.UserSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode user session: %w", err)
	}

	return s.SetSessionValue(SessionKeyUser, raw)
}

// SessionValue returns a session metadata value, or nil when unset.
func (s *Store) SessionValue(key string) ([]byte, error) {
	var out []byte

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketSession)).Get([]byte(key))
		if v != nil {
			out = append(out, v...)
		}

		return nil
	})

	return out, err
}

// SetSessionValue stores a session metadata value.
func (s *Store) SetSessionValue(key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSession)).Put([]byte(key), value)
	})
}
