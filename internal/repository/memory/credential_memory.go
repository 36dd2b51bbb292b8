package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
)

// MemoryCredentialStore implements CredentialStore in process memory.
// Nothing survives a restart; used by tests and --no-persist runs.
type MemoryCredentialStore struct {
	mutex sync.RWMutex
	pair  *models.CredentialPair
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

var _ repository.CredentialStore = (*MemoryCredentialStore)(nil)

// Load returns a copy of the stored pair.
func (s *MemoryCredentialStore) Load(ctx context.Context) (*models.CredentialPair, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.pair == nil {
		return nil, repository.ErrNoCredentials
	}
	pair := *s.pair
	return &pair, nil
}

// Save stores a copy of the pair so later caller mutations cannot leak in.
func (s *MemoryCredentialStore) Save(ctx context.Context, pair *models.CredentialPair) error {
	if !pair.IsComplete() {
		return errors.New("invalid credential pair: access and refresh must both be set")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	stored := *pair
	s.pair = &stored
	return nil
}

// Clear drops the stored pair.
func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pair = nil
	return nil
}

// Current returns the access token of the stored pair.
func (s *MemoryCredentialStore) Current(ctx context.Context) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.pair == nil {
		return "", repository.ErrNoCredentials
	}
	return s.pair.Access, nil
}
