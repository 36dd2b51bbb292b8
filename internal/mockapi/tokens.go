package mockapi

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrRefreshRejected is returned by Exchange for unknown, revoked, or
// expired refresh tokens.
var ErrRefreshRejected = errors.New("refresh token rejected")

type refreshRecord struct {
	userID    int64
	expiresAt time.Time
}

// TokenIssuer issues short-lived HS256 access tokens and opaque refresh
// tokens tracked server-side. Rotation and the access TTL are mutable at
// runtime so tests and the mock binary can force expiry paths on demand.
type TokenIssuer struct {
	secret []byte

	mu         sync.Mutex
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	refresh    map[string]refreshRecord
	exchanges  int
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, rotate bool) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		rotate:     rotate,
		refresh:    make(map[string]refreshRecord),
	}
}

// IssuePair returns a fresh access and refresh token for the user.
func (t *TokenIssuer) IssuePair(userID int64) (access, refresh string, err error) {
	access, err = t.signAccess(userID)
	if err != nil {
		return "", "", err
	}

	refresh = uuid.NewString()
	t.mu.Lock()
	t.refresh[refresh] = refreshRecord{userID: userID, expiresAt: time.Now().Add(t.refreshTTL)}
	t.mu.Unlock()
	return access, refresh, nil
}

// Exchange validates a refresh token and returns a new access token. When
// rotation is on, the presented refresh token is invalidated and the rotated
// replacement is returned; otherwise the returned refresh token is empty and
// the presented one stays valid.
func (t *TokenIssuer) Exchange(refreshToken string) (access, rotated string, err error) {
	t.mu.Lock()
	t.exchanges++
	record, ok := t.refresh[refreshToken]
	if !ok || time.Now().After(record.expiresAt) {
		delete(t.refresh, refreshToken)
		t.mu.Unlock()
		return "", "", ErrRefreshRejected
	}
	if t.rotate {
		delete(t.refresh, refreshToken)
		rotated = uuid.NewString()
		t.refresh[rotated] = refreshRecord{userID: record.userID, expiresAt: time.Now().Add(t.refreshTTL)}
	}
	t.mu.Unlock()

	access, err = t.signAccess(record.userID)
	if err != nil {
		return "", "", err
	}
	return access, rotated, nil
}

// ExchangeCount reports how many refresh exchanges have been attempted,
// successful or not.
func (t *TokenIssuer) ExchangeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exchanges
}

// RevokeAll invalidates every outstanding refresh token.
func (t *TokenIssuer) RevokeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh = make(map[string]refreshRecord)
}

// SetAccessTTL changes the TTL used for subsequently issued access tokens.
// A negative TTL issues tokens that are already expired, which is how the
// refresh path is forced in tests.
func (t *TokenIssuer) SetAccessTTL(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessTTL = d
}

// SetRotation toggles refresh token rotation for subsequent exchanges.
func (t *TokenIssuer) SetRotation(rotate bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotate = rotate
}

func (t *TokenIssuer) signAccess(userID int64) (string, error) {
	t.mu.Lock()
	ttl := t.accessTTL
	t.mu.Unlock()

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":        strconv.FormatInt(userID, 10),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"token_type": "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
