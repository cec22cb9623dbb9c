package agenda

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Storage backends for the persisted session.
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config carries environment-driven settings shared by the CLI and the API.
type Config struct {
	APIURL        string        `env:"AGENDA_API_URL" default:"http://localhost:8000/api/"`
	Storage       string        `env:"AGENDA_STORAGE" default:"file"`
	StateFile     string        `env:"AGENDA_STATE_FILE"`
	PostgresDSN   string        `env:"POSTGRES_DSN"`
	RedisURL      string        `env:"REDIS_URL"`
	ToastTTL      time.Duration `env:"TOAST_TTL" default:"3s"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" default:"10s"`
	Port          string        `env:"PORT" default:"8080"`
	SignInRate    float64       `env:"SIGNIN_RATE" default:"1"`
	SignInBurst   int           `env:"SIGNIN_BURST" default:"5"`
	LogLevel      string        `env:"LOG_LEVEL" default:"info"`
	Environment   string        `env:"ENVIRONMENT" default:"local"`
	TraceExporter string        `env:"OTEL_TRACES_EXPORTER" default:"otlp"`
}

// LoadConfig reads an optional .env file, then the environment, applies
// defaults and validates the result.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	if strings.TrimSpace(cfg.StateFile) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve default AGENDA_STATE_FILE: %w", err)
		}
		cfg.StateFile = filepath.Join(home, ".agenda", "state.json")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AGENDA_API_URL must be an absolute URL, got %q", c.APIURL)
	}
	switch c.Storage {
	case StorageFile, StorageMemory:
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required when AGENDA_STORAGE=postgres")
		}
	case StorageRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("REDIS_URL is required when AGENDA_STORAGE=redis")
		}
	default:
		return fmt.Errorf("AGENDA_STORAGE must be one of file, memory, postgres, redis, got %q", c.Storage)
	}
	if c.ToastTTL <= 0 {
		return errors.New("TOAST_TTL must be positive")
	}
	if c.SignInRate < 0 {
		return errors.New("SIGNIN_RATE must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be positive")
	}
	return nil
}
