// Package config loads server configuration from an optional YAML file with
// environment variables taking precedence.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	RedisURL string `yaml:"redis_url"`

	MongoURL string `yaml:"mongo_url"`
	MongoDB  string `yaml:"mongo_db"`

	// Optional Postgres archive of settled games. Empty disables archiving.
	DatabaseURL string `yaml:"database_url"`

	// Optional translation collaborator. Empty disables translation; chat
	// messages then always deliver untranslated.
	TranslateBaseURL   string `yaml:"translate_base_url"`
	TranslateTimeoutMS int    `yaml:"translate_timeout_ms"`

	// Live session retention in Redis, seconds.
	SessionTTLSec int `yaml:"session_ttl_sec"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":8080",
		MongoDB:            "chessio",
		TranslateTimeoutMS: 8000,
		SessionTTLSec:      24 * 3600,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MONGO_URL")); v != "" {
		cfg.MongoURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MONGO_DB")); v != "" {
		cfg.MongoDB = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRANSLATE_BASE_URL")); v != "" {
		cfg.TranslateBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TRANSLATE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TranslateTimeoutMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.MongoURL == "" {
		return nil, errors.New("MONGO_URL is required")
	}
	return cfg, nil
}
