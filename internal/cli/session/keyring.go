package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "biocom-cli"
)

// KeyringBackend persists sessions in the OS keychain/credential manager.
// The record is stored as one JSON secret so access token and username are
// written together.
type KeyringBackend struct {
	service string
}

var _ Backend = (*KeyringBackend)(nil)

func NewKeyringBackend() *KeyringBackend {
	return &KeyringBackend{service: keyringService}
}

// getKeyringKey returns a unique key for storing sessions per server
func getKeyringKey(key string) string {
	return fmt.Sprintf("session-%s", key)
}

func (k *KeyringBackend) Load(ctx context.Context, key string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	secret, err := keyring.Get(k.service, getKeyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Session{}, ErrNoSession
		}
		return Session{}, fmt.Errorf("failed to read keyring: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(secret), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode keyring session: %w: %w", ErrCorruptSession, err)
	}
	return sess, nil
}

func (k *KeyringBackend) Save(ctx context.Context, key string, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := keyring.Set(k.service, getKeyringKey(key), string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (k *KeyringBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Delete(k.service, getKeyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}
	return nil
}
