package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
)

// FileCredentialStore implements CredentialStore on a single JSON file.
// Writes go through a temp file in the same directory followed by a rename,
// so a concurrent reader sees either the old pair or the new one, and a
// crash mid-save never leaves a torn file behind.
type FileCredentialStore struct {
	path  string
	mutex sync.RWMutex
}

// NewFileCredentialStore creates a file-backed credential store at path,
// creating parent directories as needed. The file itself is created 0600 on
// the first Save.
func NewFileCredentialStore(path string) (*FileCredentialStore, error) {
	if path == "" {
		return nil, errors.New("credential file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &FileCredentialStore{path: path}, nil
}

var _ repository.CredentialStore = (*FileCredentialStore)(nil)

// Load reads and decodes the stored pair.
func (s *FileCredentialStore) Load(ctx context.Context) (*models.CredentialPair, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.read()
}

func (s *FileCredentialStore) read() (*models.CredentialPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var pair models.CredentialPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("failed to decode credential file: %w", err)
	}
	if !pair.IsComplete() {
		return nil, repository.ErrNoCredentials
	}
	return &pair, nil
}

// Save writes the pair atomically: temp file, fsync-free write, rename.
func (s *FileCredentialStore) Save(ctx context.Context, pair *models.CredentialPair) error {
	if !pair.IsComplete() {
		return errors.New("invalid credential pair: access and refresh must both be set")
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode credential pair: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

// Clear removes the credential file. A missing file is not an error.
func (s *FileCredentialStore) Clear(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}

// Current returns the stored access token.
func (s *FileCredentialStore) Current(ctx context.Context) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	pair, err := s.read()
	if err != nil {
		return "", err
	}
	return pair.Access, nil
}
