package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
)

// Fixed storage keys for the credential pair. Shared headless runners point
// several processes at the same keys, so one login serves all of them.
const (
	accessKey  = "fingraph:credentials:access"
	refreshKey = "fingraph:credentials:refresh"
)

// RedisCredentialStore implements CredentialStore on Redis. Both tokens are
// written in one TxPipeline and read in one MGET, so no client ever observes
// an access token from one pair and a refresh token from another.
type RedisCredentialStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCredentialStore creates a Redis-backed credential store.
// ttl bounds how long an untouched pair survives; zero means no expiry.
func NewRedisCredentialStore(client *redis.Client, ttl time.Duration) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, ttl: ttl}
}

var _ repository.CredentialStore = (*RedisCredentialStore)(nil)

// Load fetches both tokens in a single MGET.
func (s *RedisCredentialStore) Load(ctx context.Context) (*models.CredentialPair, error) {
	values, err := s.client.MGet(ctx, accessKey, refreshKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis MGET failed: %w", err)
	}

	access, okAccess := values[0].(string)
	refresh, okRefresh := values[1].(string)
	if !okAccess || !okRefresh || access == "" || refresh == "" {
		return nil, repository.ErrNoCredentials
	}

	return &models.CredentialPair{Access: access, Refresh: refresh}, nil
}

// Save writes both tokens in one transactional pipeline.
func (s *RedisCredentialStore) Save(ctx context.Context, pair *models.CredentialPair) error {
	if !pair.IsComplete() {
		return errors.New("invalid credential pair: access and refresh must both be set")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, accessKey, pair.Access, s.ttl)
	pipe.Set(ctx, refreshKey, pair.Refresh, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute credential store pipeline: %w", err)
	}
	return nil
}

// Clear deletes both keys in one DEL.
func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, accessKey, refreshKey).Err(); err != nil {
		return fmt.Errorf("failed to delete credential keys: %w", err)
	}
	return nil
}

// Current reads the access token only.
func (s *RedisCredentialStore) Current(ctx context.Context) (string, error) {
	access, err := s.client.Get(ctx, accessKey).Result()
	if err == redis.Nil {
		return "", repository.ErrNoCredentials
	}
	if err != nil {
		return "", fmt.Errorf("redis GET failed: %w", err)
	}
	if access == "" {
		return "", repository.ErrNoCredentials
	}
	return access, nil
}
