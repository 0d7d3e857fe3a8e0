// Package config loads application configuration from a YAML file with
// environment-variable overrides (ENV > YAML > defaults).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Media    MediaConfig    `yaml:"media"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DB_PATH" env-default:"data/storycollab.db"`
}

// AuthConfig holds JWT and OAuth settings. The GitHub fields are optional;
// when empty the OAuth sign-in routes are not registered.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"           env:"JWT_SECRET"`
	Issuer             string        `yaml:"issuer"               env:"JWT_ISSUER"              env-default:"storycollab"`
	UserTokenTTL       time.Duration `yaml:"user_token_ttl"       env:"AUTH_USER_TOKEN_TTL"     env-default:"720h"`
	AdminTokenTTL      time.Duration `yaml:"admin_token_ttl"      env:"AUTH_ADMIN_TOKEN_TTL"    env-default:"24h"`
	GitHubClientID     string        `yaml:"github_client_id"     env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `yaml:"github_client_secret" env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `yaml:"github_callback_url"  env:"GITHUB_CALLBACK_URL"`
}

// MediaConfig holds settings for the local media store.
type MediaConfig struct {
	Dir           string `yaml:"dir"             env:"MEDIA_DIR"             env-default:"data/media"`
	BaseURL       string `yaml:"base_url"        env:"MEDIA_BASE_URL"        env-default:"/media"`
	MaxUploadSize int64  `yaml:"max_upload_size" env:"MEDIA_MAX_UPLOAD_SIZE" env-default:"5242880"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Validate checks the invariants that cleanenv tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt_secret is required (set JWT_SECRET)")
	}
	if c.Media.MaxUploadSize <= 0 {
		return errors.New("media max_upload_size must be positive")
	}
	return nil
}

// Load reads configuration from a YAML file and the environment.
// The file path comes from CONFIG_PATH (fallback "./config.yaml"). A missing
// file is only an error when CONFIG_PATH was set explicitly; otherwise the
// config is built from ENV + defaults alone.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}
