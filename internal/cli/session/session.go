// Package session holds the client-side authentication state: the access token
// and the username it belongs to.
//
// A Store is an explicit object passed to the API client and the router. There
// is one Store per configured server; nothing in this package is global.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Field names a value held by the store. The names double as the keys of the
// persisted record.
type Field string

const (
	FieldAccessToken  Field = "access"
	FieldUsername     Field = "username"
	FieldRefreshToken Field = "refresh"
)

var (
	// ErrPartialSession is returned by Set when only one of access token and
	// username is provided.
	ErrPartialSession = errors.New("session requires both an access token and a username")

	// ErrNoSession is returned by backends when nothing is persisted for a key.
	ErrNoSession = errors.New("no persisted session")

	// ErrCorruptSession is returned by backends when the persisted record
	// cannot be decoded.
	ErrCorruptSession = errors.New("persisted session is corrupt")
)

// Session is the authenticated identity. AccessToken and Username are either
// both set or both empty.
type Session struct {
	AccessToken  string `json:"access"`
	Username     string `json:"username"`
	RefreshToken string `json:"refresh,omitempty"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

func (s Session) validate() error {
	if (s.AccessToken == "") != (s.Username == "") {
		return ErrPartialSession
	}
	if s.AccessToken == "" && s.RefreshToken != "" {
		return ErrPartialSession
	}
	return nil
}

// Store is the single source of truth for "is the user authenticated, and with
// what token" for one server.
type Store struct {
	mu      sync.RWMutex
	current Session

	key     string
	backend Backend
	logger  zerolog.Logger
}

// NewStore creates a store persisting under key through backend. A nil backend
// keeps the session in memory only.
func NewStore(key string, backend Backend, logger zerolog.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Store{
		key:     key,
		backend: backend,
		logger:  logger.With().Str("component", "session").Str("server", key).Logger(),
	}
}

// Load replaces the in-memory session with the persisted one. A missing,
// partial or corrupt record leaves the store anonymous; the latter two are
// deleted so they are reported once.
func (s *Store) Load(ctx context.Context) error {
	persisted, err := s.backend.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrNoSession):
		s.swap(Session{})
		return nil
	case errors.Is(err, ErrCorruptSession):
		s.discard(ctx, err)
		return nil
	case err != nil:
		s.swap(Session{})
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := persisted.validate(); err != nil {
		s.discard(ctx, err)
		return nil
	}

	s.swap(persisted)
	return nil
}

// discard drops an unusable persisted record
func (s *Store) discard(ctx context.Context, reason error) {
	s.logger.Warn().Err(reason).Msg("Discarding persisted session")
	s.swap(Session{})
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to delete discarded session")
	}
}

// Set persists sess and then makes it current. Both fields change together;
// on a persistence error the previous session stays in place.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if err := sess.validate(); err != nil {
		return err
	}
	if !sess.Authenticated() {
		return s.Clear(ctx)
	}

	if err := s.backend.Save(ctx, s.key, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.swap(sess)
	s.logger.Debug().Str("username", sess.Username).Msg("Session stored")
	return nil
}

// Get returns the value of field and whether it is present.
func (s *Store) Get(field Field) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	switch field {
	case FieldAccessToken:
		value = s.current.AccessToken
	case FieldUsername:
		value = s.current.Username
	case FieldRefreshToken:
		value = s.current.RefreshToken
	}
	return value, value != ""
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Authenticated reports whether an access token is present. Validity is not
// checked.
func (s *Store) Authenticated() bool {
	_, ok := s.Get(FieldAccessToken)
	return ok
}

// Clear removes every field. The in-memory session is dropped even when the
// backend fails to delete the persisted copy.
func (s *Store) Clear(ctx context.Context) error {
	s.swap(Session{})

	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Debug().Msg("Session cleared")
	return nil
}

func (s *Store) swap(sess Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
}
