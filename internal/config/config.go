// Package config loads the server configuration.
//
// Precedence, lowest to highest:
//  1. DefaultConfig()
//  2. an optional YAML file (--config flag)
//  3. environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// Validate is called last; the server refuses to start on an invalid config.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends for uploads.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

type Config struct {
	Port     int           `yaml:"port"`
	DBPath   string        `yaml:"db_path"`
	LogLevel string        `yaml:"log_level"`
	Auth     AuthConfig    `yaml:"auth"`
	Paths    PathsConfig   `yaml:"paths"`
	Storage  StorageConfig `yaml:"storage"`
	GitHub   GitHubConfig  `yaml:"github"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// PathsConfig locates files served or read by the API.
type PathsConfig struct {
	UploadDir string `yaml:"upload_dir"`
	StaticDir string `yaml:"static_dir"`
	FontPath  string `yaml:"font_path"`
	LogoPath  string `yaml:"logo_path"`
}

type StorageConfig struct {
	Backend string   `yaml:"backend"` // "local" or "s3"
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	PublicURL string `yaml:"public_url"`
}

// GitHubConfig enables GitHub sign-in when ClientID and ClientSecret are set.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// DefaultConfig returns the configuration used when nothing is overridden.
// JWTSecret has no default: it must come from the file or JWT_SECRET.
func DefaultConfig() *Config {
	return &Config{
		Port:     8000,
		DBPath:   "data/briefs.db",
		LogLevel: "info",
		Auth: AuthConfig{
			TokenTTL: 30 * time.Minute,
		},
		Paths: PathsConfig{
			UploadDir: "uploads",
			StaticDir: "static",
			FontPath:  "DejaVuSans.ttf",
			LogoPath:  "static/logo.png",
		},
		Storage: StorageConfig{
			Backend: StorageLocal,
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults + env only
		default:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("config: invalid TOKEN_TTL %q: %w", v, err)
		}
		c.Auth.TokenTTL = ttl
	}

	setString(&c.DBPath, "DB_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Paths.UploadDir, "UPLOAD_DIR")
	setString(&c.Paths.StaticDir, "STATIC_DIR")
	setString(&c.Paths.FontPath, "FONT_PATH")
	setString(&c.Paths.LogoPath, "LOGO_PATH")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.S3.Bucket, "S3_BUCKET")
	setString(&c.Storage.S3.Region, "S3_REGION")
	setString(&c.Storage.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.S3.Prefix, "S3_PREFIX")
	setString(&c.Storage.S3.PublicURL, "S3_PUBLIC_URL")
	setString(&c.GitHub.ClientID, "GITHUB_CLIENT_ID")
	setString(&c.GitHub.ClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&c.GitHub.CallbackURL, "GITHUB_CALLBACK_URL")

	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// parseTTL accepts a Go duration ("45m") or a bare number of minutes ("45").
func parseTTL(v string) (time.Duration, error) {
	if minutes, err := strconv.Atoi(v); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return time.ParseDuration(v)
}

// Validate checks the values the server cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt secret must be at least 16 characters (set JWT_SECRET)"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	switch c.Storage.Backend {
	case StorageLocal:
		if c.Paths.UploadDir == "" {
			errs = append(errs, errors.New("upload_dir is required for local storage"))
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required for s3 storage (set S3_BUCKET)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q (valid: %s, %s)",
			c.Storage.Backend, StorageLocal, StorageS3))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
