package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*models.CredentialPair, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CredentialPair), args.Error(1)
}
