package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrNoCredentials indicates that neither the credential file nor the
// environment provide credentials.
var ErrNoCredentials = errors.New("no credentials configured")

// Source describes where resolved credentials came from.
type Source string

const (
	SourceFile Source = "file"
	SourceEnv  Source = "env"
)

// FileStore persists credentials as JSON on disk.
type FileStore struct {
	path string
}

// NewFileStore builds a FileStore for the provided path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credential file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the credential file. A missing file yields ErrNoCredentials.
func (s *FileStore) Load() (Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials %s: %w", s.path, err)
	}
	return creds, nil
}

// Save writes credentials atomically with owner-only permissions.
func (s *FileStore) Save(creds Credentials) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ensure credentials directory: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock credentials: %w", err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}

// Delete removes the credential file. A missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

// Resolve loads credentials from the file, falling back to the environment
// when the file does not exist.
func (s *FileStore) Resolve() (Credentials, Source, error) {
	creds, err := s.Load()
	if err == nil {
		return creds.Normalized(), SourceFile, nil
	}
	if !errors.Is(err, ErrNoCredentials) {
		return Credentials{}, "", err
	}
	if env, ok := FromEnv(); ok {
		return env, SourceEnv, nil
	}
	return Credentials{}, "", ErrNoCredentials
}
