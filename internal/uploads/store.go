package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRejected marks uploads refused for their name or size.
var ErrRejected = errors.New("upload rejected")

// Store keeps uploaded files on disk, one directory per session.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the upload directory if needed. maxBytes <= 0 disables the
// size check.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes is the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save writes data under the session directory and returns the stored name.
// Only the base name of filename is kept.
func (s *Store) Save(sessionID, filename string, data []byte) (string, error) {
	name, err := CleanName(filename)
	if err != nil {
		return "", err
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrRejected, name, len(data), s.maxBytes)
	}
	dir := filepath.Join(s.dir, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create session upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("write upload %s: %w", name, err)
	}
	return name, nil
}

// Read returns the stored bytes of an upload.
func (s *Store) Read(sessionID, filename string) ([]byte, error) {
	name, err := CleanName(filename)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.dir, sessionID, name))
}

// RemoveSession deletes every file uploaded by a session.
func (s *Store) RemoveSession(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.dir, sessionID))
}

// CleanName reduces a client-supplied filename to a safe base name.
func CleanName(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: invalid filename %q", ErrRejected, filename)
	}
	return name, nil
}
