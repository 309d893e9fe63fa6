package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/taskdesk/config"
)

var logLevel slog.LevelVar

// InitLogger initializes the structured logger. The level starts at info and is
// adjusted by ApplyLogLevel once configuration is loaded.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: &logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// ApplyLogLevel sets the level of loggers created by InitLogger.
func ApplyLogLevel(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	logLevel.Set(l)
	return nil
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServerConfig checks that the backend can verify bearer tokens.
func ValidateServerConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("server config is required")
	}
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		if cfg.Auth.DevAuth.Secret == "" {
			return errors.New("DEV_AUTH_SECRET is required when AUTH_MODE=mock")
		}
	case config.AuthModeOAuth:
		if cfg.Auth.OAuth.ClientID == "" && cfg.Auth.IdentityToolkit.ProjectID == "" {
			return errors.New("AUTH_MODE=oauth needs OAUTH_CLIENT_ID or IDENTITY_TOOLKIT_PROJECT_ID to verify tokens")
		}
	default:
		return fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
	return nil
}

// ValidateClientConfig checks that the front end can reach the backend and an identity provider.
func ValidateClientConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("client config is required")
	}
	u, err := url.Parse(cfg.Client.BackendBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute http(s) URL, got %q", cfg.Client.BackendBaseURL)
	}
	if !strings.HasPrefix(cfg.Client.HomePath, "/") {
		return fmt.Errorf("APP_HOME_PATH must start with '/', got %q", cfg.Client.HomePath)
	}
	if cfg.Auth.Mode == config.AuthModeOAuth &&
		!cfg.Auth.IdentityToolkit.Enabled() && !oauthClientConfigured(cfg.Auth.OAuth) {
		return errors.New("AUTH_MODE=oauth needs IDENTITY_TOOLKIT_API_KEY or OAUTH_CLIENT_ID/OAUTH_CLIENT_SECRET")
	}
	return nil
}

func oauthClientConfigured(c config.OAuthConfig) bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.DiscoveryURL != ""
}
