package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

type MockCredentialExchanger struct {
	mock.Mock
}

func (m *MockCredentialExchanger) Refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CredentialPair), args.Error(1)
}
