package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type APIConfig struct {
	// Base URL of the graph API, e.g. http://localhost:8000
	BaseURL string
	// Per-request timeout for graph calls.
	Timeout time.Duration
	// Upper bound on a single credential refresh exchange.
	RefreshTimeout time.Duration
}

type CredentialsConfig struct {
	// Backend is one of: file, redis, memory.
	Backend string
	// Path of the credential file when the file backend is active.
	Path string
}

type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level       string
	Environment string
}

type OutputConfig struct {
	// Format is one of: table, json.
	Format  string
	NoColor bool
}

type Config struct {
	API         APIConfig
	Credentials CredentialsConfig
	Redis       RedisSettings
	Logging     LoggingConfig
	Output      OutputConfig
}

// Load reads configuration from the given YAML file (or the default search
// paths when path is empty), layered under FINGRAPH_* environment variables
// and any flags bound to viper by the CLI.
func Load(path string) (*Config, error) {
	setDefaults()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".fingraph"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("FINGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	backend := strings.ToLower(viper.GetString("credentials.backend"))
	switch backend {
	case "file", "redis", "memory":
	default:
		log.Printf("Invalid credentials backend '%s', defaulting to 'file'", backend)
		backend = "file"
	}

	format := strings.ToLower(viper.GetString("output.format"))
	switch format {
	case "table", "json":
	default:
		log.Printf("Invalid output format '%s', defaulting to 'table'", format)
		format = "table"
	}

	return &Config{
		API: APIConfig{
			BaseURL:        viper.GetString("api.base_url"),
			Timeout:        viper.GetDuration("api.timeout"),
			RefreshTimeout: viper.GetDuration("api.refresh_timeout"),
		},
		Credentials: CredentialsConfig{
			Backend: backend,
			Path:    viper.GetString("credentials.path"),
		},
		Redis: RedisSettings{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Logging: LoggingConfig{
			Level:       viper.GetString("logging.level"),
			Environment: viper.GetString("logging.environment"),
		},
		Output: OutputConfig{
			Format:  format,
			NoColor: viper.GetBool("output.no_color"),
		},
	}, nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8000")
	viper.SetDefault("api.timeout", 10*time.Second)
	viper.SetDefault("api.refresh_timeout", 15*time.Second)
	viper.SetDefault("credentials.backend", "file")
	viper.SetDefault("credentials.path", defaultCredentialPath())
	viper.SetDefault("redis.address", "127.0.0.1:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.environment", "production")
	viper.SetDefault("output.format", "table")
	viper.SetDefault("output.no_color", false)
}

func defaultCredentialPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fingraph", "credentials.json")
	}
	return filepath.Join(home, ".fingraph", "credentials.json")
}
