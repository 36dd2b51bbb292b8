package cli

import (
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fingraph-app/fingraph-cli/internal/api"
	"github.com/fingraph-app/fingraph-cli/internal/config"
	"github.com/fingraph-app/fingraph-cli/internal/output"
	"github.com/fingraph-app/fingraph-cli/internal/repository"
	"github.com/fingraph-app/fingraph-cli/internal/repository/file"
	"github.com/fingraph-app/fingraph-cli/internal/repository/memory"
	redisrepo "github.com/fingraph-app/fingraph-cli/internal/repository/redis"
	"github.com/fingraph-app/fingraph-cli/internal/service"
	"github.com/fingraph-app/fingraph-cli/internal/transport"
)

// appContext holds the wired client stack shared by all commands.
type appContext struct {
	cfg         *config.Config
	printer     *output.Printer
	renderer    *output.Renderer
	store       repository.CredentialStore
	manager     *service.SessionManager
	coordinator *service.RefreshCoordinator
	graph       *api.Client
}

func newAppContext(cfg *config.Config) (*appContext, error) {
	store, err := newCredentialStore(cfg)
	if err != nil {
		return nil, err
	}

	tr, err := transport.New(cfg.API.BaseURL, store, cfg.API.Timeout)
	if err != nil {
		return nil, err
	}

	authClient := api.NewAuthClient(tr)
	coordinator := service.NewRefreshCoordinator(store, authClient, tr, cfg.API.RefreshTimeout)

	printer := output.NewPrinter(output.ResolveColors(cfg.Output.NoColor))
	coordinator.OnSessionEnd(func(reason string) {
		if reason == service.SessionEndExpired {
			printer.Warning("Session ended (%s); stored credentials were cleared", reason)
		}
	})

	return &appContext{
		cfg:         cfg,
		printer:     printer,
		renderer:    output.NewRenderer(os.Stdout, output.Format(cfg.Output.Format)),
		store:       store,
		manager:     service.NewSessionManager(store, authClient, coordinator),
		coordinator: coordinator,
		graph:       api.NewClient(coordinator),
	}, nil
}

func newCredentialStore(cfg *config.Config) (repository.CredentialStore, error) {
	switch cfg.Credentials.Backend {
	case "file":
		return file.NewFileCredentialStore(cfg.Credentials.Path)
	case "memory":
		return memory.NewMemoryCredentialStore(), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisrepo.NewRedisCredentialStore(client, 0), nil
	default:
		return nil, fmt.Errorf("unsupported credentials backend %q", cfg.Credentials.Backend)
	}
}
