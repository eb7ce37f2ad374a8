// Package config loads service configuration. Values come from, in order of
// increasing precedence: defaults, an optional YAML config file, a .env file
// when present, and process environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is everything the service needs at startup.
type Config struct {
	// Repo identifies the content repository on the hosting service.
	RepoOwner string `yaml:"repo_owner"`
	RepoName  string `yaml:"repo_name"`
	// RepoToken is the owner token used for writes. Never read from the
	// YAML file, only from the environment.
	RepoToken string `yaml:"-"`

	// SiteURL is the public base URL guides are served from.
	SiteURL string `yaml:"site_url"`

	// ListenAddr is where the HTTP server binds.
	ListenAddr string `yaml:"listen_addr"`

	// WebhookSecret validates event deliveries. Empty disables validation.
	WebhookSecret string `yaml:"-"`

	// RedisURL enables the read cache when set.
	RedisURL string `yaml:"redis_url"`

	// QueueCapacity bounds the change queue backlog.
	QueueCapacity int `yaml:"queue_capacity"`

	// CommitterName and CommitterEmail attribute system commits such as
	// listing updates.
	CommitterName  string `yaml:"committer_name"`
	CommitterEmail string `yaml:"committer_email"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SiteURL:       "http://localhost:5000",
		ListenAddr:    ":5000",
		QueueCapacity: 256,
		LogLevel:      "info",
	}
}

// Load builds the configuration. file may be empty; a missing .env file is
// not an error.
func Load(file string) (Config, error) {
	cfg := Default()

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", file, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", file, err)
		}
	}

	// Populates the environment from .env without clobbering variables the
	// caller already set.
	_ = godotenv.Load()

	cfg.RepoOwner = envOr("REPO_OWNER", cfg.RepoOwner)
	cfg.RepoName = envOr("REPO_NAME", cfg.RepoName)
	cfg.RepoToken = envOr("REPO_TOKEN", cfg.RepoToken)
	cfg.SiteURL = envOr("SITE_URL", cfg.SiteURL)
	cfg.ListenAddr = envOr("LISTEN_ADDR", cfg.ListenAddr)
	cfg.WebhookSecret = envOr("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.RedisURL = envOr("REDIS_URL", cfg.RedisURL)
	cfg.CommitterName = envOr("COMMITTER_NAME", cfg.CommitterName)
	cfg.CommitterEmail = envOr("COMMITTER_EMAIL", cfg.CommitterEmail)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LogJSON = v == "1" || v == "true"
	}
	if v := os.Getenv("QUEUE_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("config: QUEUE_CAPACITY: %w", err)
		}
		cfg.QueueCapacity = n
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.RepoOwner == "" || c.RepoName == "" {
		return fmt.Errorf("config: REPO_OWNER and REPO_NAME are required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
