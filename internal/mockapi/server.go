package mockapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/fingraph-app/fingraph-cli/internal/models"
)

// Config controls the mock graph API.
type Config struct {
	DSN           string
	JWTSecret     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
	LoginRate     rate.Limit
	LoginBurst    int
}

// Server is an in-process rendition of the graph backend: the same token
// endpoints, the same error bodies, and the same simulation semantics the
// real service exposes. The CLI is developed and tested against it.
type Server struct {
	echo    *echo.Echo
	store   *Store
	tokens  *TokenIssuer
	limiter *rateLimiter
}

// New builds a Server. Zero config values fall back to development defaults.
func New(cfg Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.LoginRate == 0 {
		cfg.LoginRate = rate.Limit(5)
	}
	if cfg.LoginBurst == 0 {
		cfg.LoginBurst = 10
	}

	store, err := OpenStore(cfg.DSN)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:   store,
		tokens:  NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.RotateRefresh),
		limiter: newRateLimiter(cfg.LoginRate, cfg.LoginBurst),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	e.POST("/api/token/", s.handleLogin, s.limiter.Middleware())
	e.POST("/api/token/refresh/", s.handleRefresh)

	authed := e.Group("/api", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.JWTSecret),
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, models.ErrorBody{
				Detail: "Given token not valid for any token type",
				Code:   "token_not_valid",
			})
		},
	}))

	authed.GET("/nodes/", s.handleListNodes)
	authed.POST("/nodes/", s.handleCreateNode)
	authed.GET("/nodes/:id/", s.handleGetNode)
	authed.PUT("/nodes/:id/", s.handleUpdateNode)
	authed.DELETE("/nodes/:id/", s.handleDeleteNode)

	authed.GET("/edges/", s.handleListEdges)
	authed.POST("/edges/", s.handleCreateEdge)
	authed.GET("/edges/:id/", s.handleGetEdge)
	authed.PUT("/edges/:id/", s.handleUpdateEdge)
	authed.DELETE("/edges/:id/", s.handleDeleteEdge)

	authed.GET("/transactions/", s.handleListTransactions)
	authed.POST("/transactions/", s.handleCreateTransaction)
	authed.GET("/transactions/:id/", s.handleGetTransaction)
	authed.DELETE("/transactions/:id/", s.handleDeleteTransaction)

	authed.POST("/transactions/simulate/", s.handleSimulate)

	s.echo = e
	return s, nil
}

// Handler exposes the HTTP handler, mainly so tests can mount the server on
// an httptest listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the listener and releases the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Close()
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	return s.store.Close()
}

// Store exposes the fixture database for seeding.
func (s *Server) Store() *Store {
	return s.store
}

// Tokens exposes the token issuer so tests and the mock binary can force
// expiry, rotation, and revocation.
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}
