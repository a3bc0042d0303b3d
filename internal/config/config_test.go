package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresRedisAndMongo(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MONGO_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when REDIS_URL missing")
	}
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when MONGO_URL missing")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "listen_addr: \":9999\"\nredis_url: \"redis://file:6379/0\"\nmongo_url: \"mongodb://file:27017\"\nsession_ttl_sec: 60\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("REDIS_URL", "redis://env:6379/1")
	t.Setenv("MONGO_URL", "")
	t.Setenv("LISTEN_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "redis://env:6379/1" {
		t.Fatalf("env should win: got %q", cfg.RedisURL)
	}
	if cfg.MongoURL != "mongodb://file:27017" {
		t.Fatalf("file value lost: got %q", cfg.MongoURL)
	}
	if cfg.ListenAddr != ":9999" || cfg.SessionTTLSec != 60 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}
