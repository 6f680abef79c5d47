package secret

import (
	"errors"
	"fmt"
)

// SecretStore provides a pluggable interface for storing sensitive data
// such as saved-connection passwords.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendEnv      = "env"
	BackendKeychain = "keychain"
)

// Open returns the store for a configured backend. The env backend is
// read-only, so it is chained in front of an in-memory store that takes writes.
func Open(backend string) (SecretStore, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendEnv:
		return Chain{NewEnvStore(), NewMemoryStore()}, nil
	case BackendKeychain:
		return NewKeychainStore(), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", backend)
	}
}

// ErrReadOnly is returned by stores that cannot be written.
var ErrReadOnly = errors.New("secret store is read-only")

// Chain reads from the first store that has a value. Writes go to the first
// writable store; deletes go to all of them.
type Chain []SecretStore

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

func (c Chain) Set(key string, value []byte) error {
	for _, s := range c {
		err := s.Set(key, value)
		if errors.Is(err, ErrReadOnly) {
			continue
		}
		return err
	}
	return ErrReadOnly
}

func (c Chain) Delete(key string) error {
	var errs []error
	for _, s := range c {
		if err := s.Delete(key); err != nil && !errors.Is(err, ErrReadOnly) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
