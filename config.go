package session

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sethvargo/go-envconfig"
)

// Config holds the externally visible configuration. The backend base
// URL is the only required value.
type Config struct {
	BaseURL     string        `env:"SESSION_BASE_URL, required"`
	CookieTTL   time.Duration `env:"SESSION_COOKIE_TTL, default=168h"`
	StoragePath string        `env:"SESSION_STORAGE_PATH"`
	HTTPTimeout time.Duration `env:"SESSION_HTTP_TIMEOUT, default=30s"`
}

// LoadConfig reads configuration from the environment
func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to load session configuration")
	}
	return &cfg, nil
}

// Setup wires the default stack: cookie-jar primary backend, file
// fallback, HTTP client sharing the jar, and a manager on top. Hosts
// with custom backends assemble the pieces themselves.
func Setup(cfg *Config, logger Logger) (*Manager, error) {
	if logger == nil {
		logger = defLogger{}
	}

	cookies, err := NewCookieBackend(nil, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	cookies.WithTTL(cfg.CookieTTL)

	store := NewStore(cookies, fallbackBackend(cfg, logger)).WithLogger(logger)

	client, err := NewClient(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	client.
		WithHTTPClient(&http.Client{
			Jar:     cookies.Jar(),
			Timeout: cfg.HTTPTimeout,
		}).
		WithLogger(logger)

	return NewManager(client, store).WithLogger(logger), nil
}

func fallbackBackend(cfg *Config, logger Logger) Backend {
	path := cfg.StoragePath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			logger.Warn("no user config dir, session fallback storage is in-memory: %v", err)
			return NewMemoryBackend()
		}
		path = filepath.Join(dir, "edudesk", "session.json")
	}
	return NewFileBackend(path)
}
