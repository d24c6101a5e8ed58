package session

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"

	"github.com/distcompute/dcctl/pkg/client"
)

const keyringServiceName = "dcctl-session"

// TokenStore keeps the credential between runs.
type TokenStore interface {
	// Load returns the stored token and whether one was present.
	Load() (client.Token, bool, error)
	Save(client.Token) error
	Delete() error
}

// KeyringStore keeps the credential in the operating system keyring, one entry per backend.
type KeyringStore struct {
	key string
}

func NewKeyringStore(baseUrl string) *KeyringStore {
	return &KeyringStore{key: baseUrl}
}

func (s *KeyringStore) Load() (client.Token, bool, error) {
	data, err := keyring.Get(keyringServiceName, s.key)
	if errors.Is(err, keyring.ErrNotFound) {
		return client.Token{}, false, nil
	}
	if err != nil {
		return client.Token{}, false, errors.Wrap(err, "failed to read session from keyring")
	}
	var token client.Token
	if err := token.UnmarshalText([]byte(data)); err != nil {
		// A corrupt entry is as good as none; the next login overwrites it.
		return client.Token{}, false, nil
	}
	return token, !token.IsZero(), nil
}

func (s *KeyringStore) Save(token client.Token) error {
	if token.IsZero() {
		return s.Delete()
	}
	data, err := token.MarshalText()
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringServiceName, s.key, string(data)); err != nil {
		return errors.Wrap(err, "failed to save session to keyring")
	}
	return nil
}

func (s *KeyringStore) Delete() error {
	if err := keyring.Delete(keyringServiceName, s.key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "failed to delete session from keyring")
	}
	return nil
}

// MemoryStore keeps the credential for the lifetime of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	token client.Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (client.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, !s.token.IsZero(), nil
}

func (s *MemoryStore) Save(token client.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Delete() error {
	return s.Save(client.Token{})
}

// NewTokenStore returns the store named by kind ("keyring" or "memory").
func NewTokenStore(kind string, baseUrl string) (TokenStore, error) {
	switch kind {
	case "", "keyring":
		return NewKeyringStore(baseUrl), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown token store %q", kind)
	}
}
