package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Load(ctx context.Context) (*models.CredentialPair, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CredentialPair), args.Error(1)
}

func (m *MockCredentialStore) Save(ctx context.Context, pair *models.CredentialPair) error {
	args := m.Called(ctx, pair)
	return args.Error(0)
}

func (m *MockCredentialStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCredentialStore) Current(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
