package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "databridge-connections"

// keychainItemNotFound is the exit code `security` uses for a missing item.
const keychainItemNotFound = 44

// KeychainStore implements SecretStore using the macOS Keychain via the
// `security` CLI tool. Useful when the bridge runs on a workstation.
type KeychainStore struct {
	service string
}

// NewKeychainStore creates a new KeychainStore.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService}
}

func (k *KeychainStore) security(args ...string) ([]byte, error) {
	args = append(args, "-s", k.service)
	return exec.Command("security", args...).Output()
}

// Set stores a secret, replacing any existing value.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.security("add-generic-password", "-U", "-a", key, "-w", string(value))
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil when the item does not exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.security("find-generic-password", "-a", key, "-w")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == keychainItemNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

func (k *KeychainStore) Delete(key string) error {
	_, err := k.security("delete-generic-password", "-a", key)
	var exitErr *exec.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.ExitCode() == keychainItemNotFound) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
