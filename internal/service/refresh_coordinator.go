package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fingraph-app/fingraph-cli/internal/models"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// DefaultRefreshTimeout bounds a single credential refresh. The refresh runs
// detached from the caller contexts so that one impatient caller cannot kill
// the exchange every other waiter depends on, and this timeout is what keeps
// the detached call from hanging forever.
const DefaultRefreshTimeout = 15 * time.Second

// refreshKey is the singleflight key. Every rejected request joins the same
// flight, so at most one refresh call is on the wire at any time.
const refreshKey = "credential_refresh"

// Reasons passed to OnSessionEnd listeners.
const (
	SessionEndLogout  = "logout"
	SessionEndExpired = "expired"
)

// RefreshCoordinator executes requests through a Dispatcher and owns the
// credential refresh lifecycle around them. When the backend rejects the
// access credential, the failed caller parks on a shared refresh flight;
// once that flight replaces the stored credential, every parked caller
// retries its own request exactly once. If the refresh itself is rejected,
// stored credentials are cleared and every parked caller gets
// ErrSessionExpired.
type RefreshCoordinator struct {
	store      repository.CredentialStore
	exchanger  CredentialExchanger
	dispatcher Dispatcher
	timeout    time.Duration

	group singleflight.Group

	mutex sync.Mutex
	// generation moves on every login and logout. A refresh that finishes
	// against an older generation discards its result instead of saving it,
	// which is how an explicit logout beats an in-flight refresh.
	generation uint64
	refreshing bool
	listeners  []func(reason string)
}

// NewRefreshCoordinator creates a RefreshCoordinator. A non-positive timeout
// falls back to DefaultRefreshTimeout.
func NewRefreshCoordinator(store repository.CredentialStore, exchanger CredentialExchanger, dispatcher Dispatcher, timeout time.Duration) *RefreshCoordinator {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &RefreshCoordinator{
		store:      store,
		exchanger:  exchanger,
		dispatcher: dispatcher,
		timeout:    timeout,
	}
}

// Execute dispatches req and transparently recovers from an expired access
// credential: refresh once, retry once. Any other failure, including a
// second rejection after the retry, is final.
func (c *RefreshCoordinator) Execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := c.dispatcher.Send(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, repository.ErrNoCredentials) {
		return nil, fmt.Errorf("%w: no credentials are stored", ErrNotAuthenticated)
	}
	var unauthorized *transport.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		return nil, err
	}

	log.Printf("[RefreshCoordinator.Execute] Access credential rejected for %s %s, joining refresh flight", req.Method, req.Path)

	if refreshErr := c.awaitRefresh(ctx, unauthorized.Credential); refreshErr != nil {
		return nil, refreshErr
	}

	resp, err = c.dispatcher.Send(ctx, req)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, repository.ErrNoCredentials) {
		return nil, fmt.Errorf("%w: no credentials are stored", ErrNotAuthenticated)
	}
	var again *transport.UnauthorizedError
	if errors.As(err, &again) {
		log.Printf("[RefreshCoordinator.Execute] ERROR: Retried %s %s was rejected again, giving up", req.Method, req.Path)
		return nil, fmt.Errorf("%w: %v", ErrRequestFailedAfterRetry, again)
	}
	return nil, err
}

// OnSessionEnd registers a listener that runs whenever an established
// session ends, either through Logout or through a rejected refresh.
func (c *RefreshCoordinator) OnSessionEnd(listener func(reason string)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.listeners = append(c.listeners, listener)
}

// awaitRefresh joins the shared refresh flight and blocks until the flight
// finishes or ctx is done. A caller that gives up early just stops waiting;
// the flight keeps running for everyone else.
func (c *RefreshCoordinator) awaitRefresh(ctx context.Context, staleAccess string) error {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		c.setRefreshing(true)
		defer c.setRefreshing(false)
		return nil, c.runRefresh(flightCtx, staleAccess)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runRefresh is the body of the shared flight. staleAccess is the credential
// the backend just rejected; if the store already holds a different one, a
// previous flight has done the work and no network call is made.
func (c *RefreshCoordinator) runRefresh(ctx context.Context, staleAccess string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mutex.Lock()
	generation := c.generation
	c.mutex.Unlock()

	stored, err := c.store.Load(ctx)
	if errors.Is(err, repository.ErrNoCredentials) {
		log.Printf("[RefreshCoordinator.runRefresh] Credentials already cleared, session is over")
		return ErrSessionExpired
	}
	if err != nil {
		log.Printf("[RefreshCoordinator.runRefresh] ERROR: Failed to load credentials: %v", err)
		return fmt.Errorf("failed to load credentials for refresh: %w", err)
	}

	if stored.Access != staleAccess {
		log.Printf("[RefreshCoordinator.runRefresh] Stored access credential already replaced, skipping exchange")
		return nil
	}

	refreshed, err := c.exchanger.Refresh(ctx, stored.Refresh)
	if err != nil {
		log.Printf("[RefreshCoordinator.runRefresh] ERROR: Credential refresh rejected: %v", err)
		if endErr := c.endSession(ctx, SessionEndExpired, true); endErr != nil {
			log.Printf("[RefreshCoordinator.runRefresh] WARN: Failed to clear credentials after rejected refresh: %v", endErr)
		}
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	merged := stored.WithRotation(refreshed.Access, refreshed.Refresh)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.generation != generation {
		// A logout or a fresh login finished while the exchange was on the
		// wire. That outcome stands and this result is discarded.
		if _, loadErr := c.store.Load(ctx); errors.Is(loadErr, repository.ErrNoCredentials) {
			return ErrSessionExpired
		}
		return nil
	}
	if err := c.store.Save(ctx, merged); err != nil {
		log.Printf("[RefreshCoordinator.runRefresh] ERROR: Failed to persist refreshed credentials: %v", err)
		return fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}

	log.Printf("[RefreshCoordinator.runRefresh] SUCCESS: Access credential replaced (refresh rotated: %t)", refreshed.Refresh != "")
	return nil
}

// installSession saves a freshly issued pair and moves the generation so any
// refresh still in flight cannot overwrite it.
func (c *RefreshCoordinator) installSession(ctx context.Context, pair *models.CredentialPair) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.generation++
	if err := c.store.Save(ctx, pair); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	return nil
}

// endSession clears stored credentials and moves the generation. Listener
// notification is skipped when there was no established session to end.
func (c *RefreshCoordinator) endSession(ctx context.Context, reason string, notify bool) error {
	c.mutex.Lock()
	c.generation++
	clearErr := c.store.Clear(ctx)
	listeners := slices.Clone(c.listeners)
	c.mutex.Unlock()

	if clearErr != nil {
		return fmt.Errorf("failed to clear stored credentials: %w", clearErr)
	}
	if notify {
		for _, listener := range listeners {
			listener(reason)
		}
	}
	return nil
}

func (c *RefreshCoordinator) setRefreshing(active bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.refreshing = active
}

func (c *RefreshCoordinator) refreshInFlight() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.refreshing
}
