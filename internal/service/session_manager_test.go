package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fingraph-app/fingraph-cli/internal/mocks"
	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
	"github.com/fingraph-app/fingraph-cli/internal/repository/memory"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *mocks.MockAuthenticator, repository.CredentialStore, *RefreshCoordinator) {
	t.Helper()
	store := memory.NewMemoryCredentialStore()
	coord := NewRefreshCoordinator(store, new(mocks.MockCredentialExchanger), new(mocks.MockDispatcher), time.Second)
	mockAuth := new(mocks.MockAuthenticator)
	return NewSessionManager(store, mockAuth, coord), mockAuth, store, coord
}

func TestSessionManager_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		manager, mockAuth, store, _ := newTestSessionManager(t)
		mockAuth.On("Login", mock.Anything, "alice", "secret").
			Return(&models.CredentialPair{Access: "A1", Refresh: "R1"}, nil).Once()

		require.NoError(t, manager.Login(ctx, "alice", "secret"))

		pair, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A1", pair.Access)
		assert.Equal(t, "R1", pair.Refresh)
		mockAuth.AssertExpectations(t)
	})

	t.Run("RejectedCredentials", func(t *testing.T) {
		manager, mockAuth, store, _ := newTestSessionManager(t)
		mockAuth.On("Login", mock.Anything, "alice", "wrong").
			Return(nil, &transport.APIError{
				Status: http.StatusUnauthorized,
				Detail: "No active account found with the given credentials",
			}).Once()

		err := manager.Login(ctx, "alice", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthenticationRejected)
		assert.Contains(t, err.Error(), "No active account found with the given credentials")

		_, loadErr := store.Load(ctx)
		assert.ErrorIs(t, loadErr, repository.ErrNoCredentials)
	})

	t.Run("MissingRefreshCredentialIsProtocolViolation", func(t *testing.T) {
		manager, mockAuth, store, _ := newTestSessionManager(t)
		mockAuth.On("Login", mock.Anything, "alice", "secret").
			Return(&models.CredentialPair{Access: "A1"}, nil).Once()

		err := manager.Login(ctx, "alice", "secret")
		assert.ErrorIs(t, err, ErrProtocolViolation)

		_, loadErr := store.Load(ctx)
		assert.ErrorIs(t, loadErr, repository.ErrNoCredentials, "a partial pair must never be persisted")
	})

	t.Run("MissingAccessCredentialIsProtocolViolation", func(t *testing.T) {
		manager, mockAuth, store, _ := newTestSessionManager(t)
		mockAuth.On("Login", mock.Anything, "alice", "secret").
			Return(&models.CredentialPair{Refresh: "R1"}, nil).Once()

		err := manager.Login(ctx, "alice", "secret")
		assert.ErrorIs(t, err, ErrProtocolViolation)

		_, loadErr := store.Load(ctx)
		assert.ErrorIs(t, loadErr, repository.ErrNoCredentials)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		manager, mockAuth, _, _ := newTestSessionManager(t)

		err := manager.Login(ctx, "", "secret")
		assert.Error(t, err)
		mockAuth.AssertNotCalled(t, "Login")
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		manager, mockAuth, _, _ := newTestSessionManager(t)

		err := manager.Login(ctx, "alice", "")
		assert.Error(t, err)
		mockAuth.AssertNotCalled(t, "Login")
	})

	t.Run("ServerErrorIsNotARejection", func(t *testing.T) {
		manager, mockAuth, _, _ := newTestSessionManager(t)
		mockAuth.On("Login", mock.Anything, "alice", "secret").
			Return(nil, &transport.APIError{Status: http.StatusInternalServerError, Detail: "worker timeout"}).Once()

		err := manager.Login(ctx, "alice", "secret")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAuthenticationRejected)
	})

	t.Run("NetworkErrorPassesThrough", func(t *testing.T) {
		manager, mockAuth, _, _ := newTestSessionManager(t)
		dialErr := errors.New("dial tcp 127.0.0.1:8000: connection refused")
		mockAuth.On("Login", mock.Anything, "alice", "secret").Return(nil, dialErr).Once()

		err := manager.Login(ctx, "alice", "secret")
		require.Error(t, err)
		assert.ErrorIs(t, err, dialErr)
		assert.NotErrorIs(t, err, ErrAuthenticationRejected)
	})

	t.Run("SecondLoginReplacesSession", func(t *testing.T) {
		manager, mockAuth, store, _ := newTestSessionManager(t)
		mockAuth.On("Login", mock.Anything, "alice", "secret").
			Return(&models.CredentialPair{Access: "A1", Refresh: "R1"}, nil).Once()
		mockAuth.On("Login", mock.Anything, "bob", "hunter2").
			Return(&models.CredentialPair{Access: "A2", Refresh: "R2"}, nil).Once()

		require.NoError(t, manager.Login(ctx, "alice", "secret"))
		require.NoError(t, manager.Login(ctx, "bob", "hunter2"))

		pair, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "A2", pair.Access)
		assert.Equal(t, "R2", pair.Refresh)
	})
}

func TestSessionManager_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("EndsSession", func(t *testing.T) {
		manager, _, store, _ := newTestSessionManager(t)
		require.NoError(t, store.Save(ctx, &models.CredentialPair{Access: "A1", Refresh: "R1"}))

		var reasons []string
		manager.OnSessionEnd(func(reason string) { reasons = append(reasons, reason) })

		require.NoError(t, manager.Logout(ctx))

		_, loadErr := store.Load(ctx)
		assert.ErrorIs(t, loadErr, repository.ErrNoCredentials)
		assert.Equal(t, []string{SessionEndLogout}, reasons)
	})

	t.Run("IdempotentWithoutSession", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)

		var reasons []string
		manager.OnSessionEnd(func(reason string) { reasons = append(reasons, reason) })

		require.NoError(t, manager.Logout(ctx))
		assert.Empty(t, reasons, "ending a session that does not exist must not notify")
	})
}

func TestSessionManager_Resume(t *testing.T) {
	ctx := context.Background()

	t.Run("WithStoredSession", func(t *testing.T) {
		manager, _, store, _ := newTestSessionManager(t)
		require.NoError(t, store.Save(ctx, &models.CredentialPair{Access: "A1", Refresh: "R1"}))

		resumed, err := manager.Resume(ctx)
		require.NoError(t, err)
		assert.True(t, resumed)
	})

	t.Run("WithoutStoredSession", func(t *testing.T) {
		manager, _, _, _ := newTestSessionManager(t)

		resumed, err := manager.Resume(ctx)
		require.NoError(t, err)
		assert.False(t, resumed)
	})
}

func TestSessionManager_State(t *testing.T) {
	ctx := context.Background()

	manager, _, store, coord := newTestSessionManager(t)

	state, err := manager.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, state)

	require.NoError(t, store.Save(ctx, &models.CredentialPair{Access: "A1", Refresh: "R1"}))
	state, err = manager.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)

	coord.setRefreshing(true)
	state, err = manager.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRefreshing, state)
	coord.setRefreshing(false)
}
