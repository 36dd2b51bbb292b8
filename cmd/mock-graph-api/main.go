package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fingraph-app/fingraph-cli/internal/mockapi"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	dsn := flag.String("dsn", mockapi.DefaultDSN, "sqlite DSN backing the fixture data")
	secret := flag.String("jwt-secret", "dev-secret", "HMAC key for access tokens")
	accessTTL := flag.Duration("access-ttl", 5*time.Minute, "access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", 24*time.Hour, "refresh token lifetime")
	rotate := flag.Bool("rotate-refresh", false, "rotate the refresh token on every exchange")
	seedUser := flag.String("seed-user", "", "create this user at startup")
	seedPassword := flag.String("seed-password", "", "password for the seeded user")
	flag.Parse()

	srv, err := mockapi.New(mockapi.Config{
		DSN:           *dsn,
		JWTSecret:     *secret,
		AccessTTL:     *accessTTL,
		RefreshTTL:    *refreshTTL,
		RotateRefresh: *rotate,
	})
	if err != nil {
		log.Fatalf("Failed to build mock server: %v", err)
	}

	if *seedUser != "" {
		if _, err := srv.Store().CreateUser(context.Background(), *seedUser, *seedPassword); err != nil {
			log.Fatalf("Failed to seed user %q: %v", *seedUser, err)
		}
		log.Printf("Seeded user %q", *seedUser)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Printf("Mock graph API listening on %s...", *addr)
		if err := srv.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := srv.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
