package session

import (
	"context"
	"sync"
)

// Backend persists one session record per key. Implementations store the
// whole record in a single write so fields cannot be persisted separately.
type Backend interface {
	Load(ctx context.Context, key string) (Session, error)
	Save(ctx context.Context, key string, sess Session) error
	Delete(ctx context.Context, key string) error
}

// MemoryBackend keeps sessions for the lifetime of the process
type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]Session
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]Session)}
}

func (m *MemoryBackend) Load(ctx context.Context, key string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[key]
	if !ok {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (m *MemoryBackend) Save(ctx context.Context, key string, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[key] = sess
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}
