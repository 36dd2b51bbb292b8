package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
	"github.com/fingraph-app/fingraph-cli/internal/repository/memory"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// fakeBackend is a minimal stand-in for the graph API. The resource endpoint
// accepts exactly one access token; the refresh endpoint can be held closed
// with refreshGate so tests control when the exchange completes.
type fakeBackend struct {
	mu             sync.Mutex
	validAccess    string
	validRefresh   string
	nextAccess     string
	rotatedRefresh string
	rejectRefresh  bool
	alwaysReject   bool

	resourceHits  int
	rejectedHits  int
	refreshHits   int
	grantedTokens []string

	refreshGate chan struct{}
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/nodes/", b.handleResource)
	mux.HandleFunc("/api/token/refresh/", b.handleRefresh)
	return mux
}

func (b *fakeBackend) handleResource(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	b.mu.Lock()
	b.resourceHits++
	granted := !b.alwaysReject && token == b.validAccess
	if granted {
		b.grantedTokens = append(b.grantedTokens, token)
	} else {
		b.rejectedHits++
	}
	b.mu.Unlock()

	if !granted {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Given token not valid for any token type","code":"token_not_valid"}`)
		return
	}
	writeJSON(w, http.StatusOK, `[{"id":1,"name":"Salary","node_type":"INCOME","balance":"0.00"}]`)
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	gate := b.refreshGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	var req models.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.refreshHits++
	reject := b.rejectRefresh || req.Refresh != b.validRefresh
	resp := map[string]string{}
	if !reject {
		b.validAccess = b.nextAccess
		resp["access"] = b.nextAccess
		if b.rotatedRefresh != "" {
			b.validRefresh = b.rotatedRefresh
			resp["refresh"] = b.rotatedRefresh
		}
	}
	b.mu.Unlock()

	if reject {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`)
		return
	}
	body, _ := json.Marshal(resp)
	writeJSON(w, http.StatusOK, string(body))
}

func (b *fakeBackend) rejectedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejectedHits
}

func (b *fakeBackend) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshHits
}

func (b *fakeBackend) resourceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resourceHits
}

func (b *fakeBackend) granted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.grantedTokens...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// httpExchanger drives the fake backend's refresh endpoint through the real
// transport, the same way the api package does in production.
type httpExchanger struct {
	client *transport.Client
}

func (e *httpExchanger) Refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	body, err := json.Marshal(models.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return nil, err
	}
	resp, err := e.client.SendUnauthenticated(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   "/api/token/refresh/",
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	var out models.RefreshResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &models.CredentialPair{Access: out.Access, Refresh: out.Refresh}, nil
}

type coordinatorFixture struct {
	backend *fakeBackend
	store   repository.CredentialStore
	coord   *RefreshCoordinator
	manager *SessionManager
}

func newCoordinatorFixture(t *testing.T, backend *fakeBackend) *coordinatorFixture {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := memory.NewMemoryCredentialStore()
	client, err := transport.New(srv.URL, store, 5*time.Second)
	require.NoError(t, err)

	coord := NewRefreshCoordinator(store, &httpExchanger{client: client}, client, 5*time.Second)
	return &coordinatorFixture{
		backend: backend,
		store:   store,
		coord:   coord,
		manager: NewSessionManager(store, nil, coord),
	}
}

func listNodesRequest() *transport.Request {
	return &transport.Request{Method: http.MethodGet, Path: "/api/nodes/"}
}

func TestRefreshCoordinator_SingleFlight(t *testing.T) {
	ctx := context.Background()
	const callers = 5

	backend := &fakeBackend{
		validAccess:  "T2",
		validRefresh: "R1",
		nextAccess:   "T2",
		refreshGate:  make(chan struct{}),
	}
	fx := newCoordinatorFixture(t, backend)
	require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	var g errgroup.Group
	for range callers {
		g.Go(func() error {
			_, err := fx.coord.Execute(ctx, listNodesRequest())
			return err
		})
	}

	// Hold the refresh until every caller has been rejected once, so all of
	// them are parked on the same flight.
	require.Eventually(t, func() bool {
		return backend.rejectedCount() == callers
	}, 2*time.Second, 5*time.Millisecond)
	close(backend.refreshGate)

	require.NoError(t, g.Wait())

	assert.Equal(t, 1, backend.refreshCount(), "all concurrent callers must share one refresh")
	assert.Equal(t, 2*callers, backend.resourceCount())

	granted := backend.granted()
	require.Len(t, granted, callers)
	for _, token := range granted {
		assert.Equal(t, "T2", token, "every retry must carry the replacement credential")
	}

	pair, err := fx.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", pair.Access)
	assert.Equal(t, "R1", pair.Refresh)

	state, err := fx.manager.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, state)
}

func TestRefreshCoordinator_RetriesExactlyOnce(t *testing.T) {
	ctx := context.Background()

	backend := &fakeBackend{
		validAccess:  "T2",
		validRefresh: "R1",
		nextAccess:   "T2",
		alwaysReject: true,
	}
	fx := newCoordinatorFixture(t, backend)
	require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	_, err := fx.coord.Execute(ctx, listNodesRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestFailedAfterRetry)
	assert.NotErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, 2, backend.resourceCount(), "original dispatch plus exactly one retry")
	assert.Equal(t, 1, backend.refreshCount(), "a rejected retry must not trigger a second refresh")
}

func TestRefreshCoordinator_RefreshRejectionEndsSession(t *testing.T) {
	ctx := context.Background()
	const callers = 3

	backend := &fakeBackend{
		validAccess:   "T2",
		validRefresh:  "R1",
		nextAccess:    "T2",
		rejectRefresh: true,
		refreshGate:   make(chan struct{}),
	}
	fx := newCoordinatorFixture(t, backend)
	require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	var endMu sync.Mutex
	var endReasons []string
	fx.coord.OnSessionEnd(func(reason string) {
		endMu.Lock()
		defer endMu.Unlock()
		endReasons = append(endReasons, reason)
	})

	errs := make(chan error, callers)
	for range callers {
		go func() {
			_, err := fx.coord.Execute(ctx, listNodesRequest())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool {
		return backend.rejectedCount() == callers
	}, 2*time.Second, 5*time.Millisecond)
	close(backend.refreshGate)

	for range callers {
		err := <-errs
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSessionExpired, "every parked caller must see the session end")
	}

	assert.Equal(t, 1, backend.refreshCount())

	_, loadErr := fx.store.Load(ctx)
	assert.ErrorIs(t, loadErr, repository.ErrNoCredentials, "a failed refresh must clear the store")

	endMu.Lock()
	assert.Equal(t, []string{SessionEndExpired}, endReasons)
	endMu.Unlock()

	state, err := fx.manager.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateUnauthenticated, state)

	// The next call must fail fast without touching the network.
	before := backend.resourceCount()
	_, err = fx.coord.Execute(ctx, listNodesRequest())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, before, backend.resourceCount())
}

func TestRefreshCoordinator_SkipsExchangeWhenCredentialAlreadyReplaced(t *testing.T) {
	ctx := context.Background()

	backend := &fakeBackend{validAccess: "T2", validRefresh: "R1", nextAccess: "T3"}
	fx := newCoordinatorFixture(t, backend)
	require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T2", Refresh: "R1"}))

	// The rejection that triggered this flight was stamped with T1, but the
	// store has since moved on to T2. No exchange should happen.
	require.NoError(t, fx.coord.awaitRefresh(ctx, "T1"))
	assert.Equal(t, 0, backend.refreshCount())

	pair, err := fx.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", pair.Access)
}

func TestRefreshCoordinator_AbandonedWaiterDoesNotCancelFlight(t *testing.T) {
	ctx := context.Background()

	backend := &fakeBackend{
		validAccess:  "T2",
		validRefresh: "R1",
		nextAccess:   "T2",
		refreshGate:  make(chan struct{}),
	}
	fx := newCoordinatorFixture(t, backend)
	require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	impatientCtx, cancel := context.WithCancel(ctx)
	impatientErr := make(chan error, 1)
	go func() {
		_, err := fx.coord.Execute(impatientCtx, listNodesRequest())
		impatientErr <- err
	}()

	patientErr := make(chan error, 1)
	go func() {
		_, err := fx.coord.Execute(ctx, listNodesRequest())
		patientErr <- err
	}()

	require.Eventually(t, func() bool {
		return backend.rejectedCount() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// The impatient caller walks away while the refresh is still held.
	cancel()
	select {
	case err := <-impatientErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned waiter did not return after cancellation")
	}

	close(backend.refreshGate)
	require.NoError(t, <-patientErr, "the flight must complete for the caller that kept waiting")
	assert.Equal(t, 1, backend.refreshCount())

	pair, err := fx.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T2", pair.Access)
}

func TestRefreshCoordinator_RefreshRotation(t *testing.T) {
	ctx := context.Background()

	t.Run("RotatedRefreshReplacesStored", func(t *testing.T) {
		backend := &fakeBackend{
			validAccess:    "T2",
			validRefresh:   "R1",
			nextAccess:     "T2",
			rotatedRefresh: "R2",
		}
		fx := newCoordinatorFixture(t, backend)
		require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

		_, err := fx.coord.Execute(ctx, listNodesRequest())
		require.NoError(t, err)

		pair, err := fx.store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "T2", pair.Access)
		assert.Equal(t, "R2", pair.Refresh, "a rotated refresh credential must replace the stored one")
	})

	t.Run("AbsentRefreshKeepsStored", func(t *testing.T) {
		backend := &fakeBackend{
			validAccess:  "T2",
			validRefresh: "R1",
			nextAccess:   "T2",
		}
		fx := newCoordinatorFixture(t, backend)
		require.NoError(t, fx.store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

		_, err := fx.coord.Execute(ctx, listNodesRequest())
		require.NoError(t, err)

		pair, err := fx.store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "R1", pair.Refresh)
	})
}

// dispatcherFunc adapts a closure to the Dispatcher interface for tests that
// need scripted transport behavior.
type dispatcherFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

func (f dispatcherFunc) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return f(ctx, req)
}

// blockingExchanger parks inside Refresh until unblock is closed.
type blockingExchanger struct {
	unblock chan struct{}
	pair    *models.CredentialPair
}

func (b *blockingExchanger) Refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	<-b.unblock
	return b.pair, nil
}

func TestRefreshCoordinator_LogoutWinsOverInFlightRefresh(t *testing.T) {
	ctx := context.Background()

	store := memory.NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	unblock := make(chan struct{})
	exchanger := &blockingExchanger{unblock: unblock, pair: &models.CredentialPair{Access: "T2"}}
	dispatcher := dispatcherFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return nil, &transport.UnauthorizedError{Credential: "T1", Code: "token_not_valid"}
	})

	coord := NewRefreshCoordinator(store, exchanger, dispatcher, 5*time.Second)
	manager := NewSessionManager(store, nil, coord)

	execErr := make(chan error, 1)
	go func() {
		_, err := coord.Execute(ctx, listNodesRequest())
		execErr <- err
	}()

	require.Eventually(t, coord.refreshInFlight, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, manager.Logout(ctx))
	close(unblock)

	err := <-execErr
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The refresh finished after the logout, but its result must not
	// resurrect the session.
	_, loadErr := store.Load(ctx)
	assert.ErrorIs(t, loadErr, repository.ErrNoCredentials)
}

func TestRefreshCoordinator_ReloginDuringRefreshKeepsNewSession(t *testing.T) {
	ctx := context.Background()

	store := memory.NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	unblock := make(chan struct{})
	exchanger := &blockingExchanger{unblock: unblock, pair: &models.CredentialPair{Access: "T2"}}

	var calls int
	var callMu sync.Mutex
	dispatcher := dispatcherFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		callMu.Lock()
		defer callMu.Unlock()
		calls++
		if calls == 1 {
			return nil, &transport.UnauthorizedError{Credential: "T1", Code: "token_not_valid"}
		}
		return &transport.Response{Status: http.StatusOK, Body: []byte(`[]`)}, nil
	})

	coord := NewRefreshCoordinator(store, exchanger, dispatcher, 5*time.Second)

	execErr := make(chan error, 1)
	go func() {
		_, err := coord.Execute(ctx, listNodesRequest())
		execErr <- err
	}()

	require.Eventually(t, coord.refreshInFlight, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, coord.installSession(ctx, &models.CredentialPair{Access: "T9", Refresh: "R9"}))
	close(unblock)

	require.NoError(t, <-execErr)

	pair, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T9", pair.Access, "the newer login must not be overwritten by the stale refresh")
	assert.Equal(t, "R9", pair.Refresh)
}

func TestRefreshCoordinator_NonAuthFailuresPassThrough(t *testing.T) {
	ctx := context.Background()

	store := memory.NewMemoryCredentialStore()
	require.NoError(t, store.Save(ctx, &models.CredentialPair{Access: "T1", Refresh: "R1"}))

	var refreshCalls int
	exchanger := &countingExchanger{calls: &refreshCalls}

	t.Run("ServerError", func(t *testing.T) {
		apiErr := &transport.APIError{Status: http.StatusInternalServerError, Detail: "database unavailable"}
		dispatcher := dispatcherFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return nil, apiErr
		})
		coord := NewRefreshCoordinator(store, exchanger, dispatcher, time.Second)

		_, err := coord.Execute(ctx, listNodesRequest())
		assert.ErrorIs(t, err, apiErr)
		assert.Zero(t, refreshCalls, "a non-auth failure must not trigger a refresh")
	})

	t.Run("Forbidden", func(t *testing.T) {
		apiErr := &transport.APIError{Status: http.StatusForbidden, Detail: "not your graph"}
		dispatcher := dispatcherFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return nil, apiErr
		})
		coord := NewRefreshCoordinator(store, exchanger, dispatcher, time.Second)

		_, err := coord.Execute(ctx, listNodesRequest())
		assert.ErrorIs(t, err, apiErr)
		assert.Zero(t, refreshCalls)
	})
}

type countingExchanger struct {
	mu    sync.Mutex
	calls *int
}

func (c *countingExchanger) Refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.calls++
	return &models.CredentialPair{Access: "unused"}, nil
}
