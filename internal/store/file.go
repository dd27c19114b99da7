package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/waabox/fyerslogin/internal/domain"
)

// DefaultPath is the token file written relative to the working directory.
const DefaultPath = "access_token.txt"

// FileStore persists the raw access token value to a single plain-text file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to path; an empty path uses DefaultPath.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

// Path returns the token file path.
func (s *FileStore) Path() string {
	return s.path
}

// Persist overwrites the token file with token.Value and nothing else.
// A nil or empty token fails with a *domain.StoreError wrapping domain.ErrNothingToPersist;
// a value with surrounding whitespace fails with domain.ErrMalformedToken, so whatever
// Persist accepts, Load returns unchanged.
func (s *FileStore) Persist(token *domain.Token) error {
	if token == nil || token.Value == "" {
		return &domain.StoreError{Op: "save", Path: s.path, Cause: domain.ErrNothingToPersist}
	}
	if strings.TrimSpace(token.Value) != token.Value {
		return &domain.StoreError{Op: "save", Path: s.path, Cause: domain.ErrMalformedToken}
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return &domain.StoreError{Op: "save", Path: s.path, Cause: fmt.Errorf("creating directory: %w", err)}
		}
	}
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return &domain.StoreError{Op: "save", Path: s.path, Cause: err}
	}
	if _, err := f.WriteString(token.Value); err != nil {
		f.Close()
		return &domain.StoreError{Op: "save", Path: s.path, Cause: err}
	}
	if err := f.Close(); err != nil {
		return &domain.StoreError{Op: "save", Path: s.path, Cause: err}
	}
	return nil
}

// Load returns the saved token value. Surrounding whitespace, such as a trailing
// newline left by an editor, is trimmed.
// A missing or blank file yields domain.ErrNoToken.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", domain.ErrNoToken
	}
	if err != nil {
		return "", &domain.StoreError{Op: "load", Path: s.path, Cause: err}
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", domain.ErrNoToken
	}
	return value, nil
}
