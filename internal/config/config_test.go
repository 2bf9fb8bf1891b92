package config

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when BACKEND_URL is missing")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:4000/")
	t.Setenv("SERVER_HOST", "")
	t.Setenv("ACCESS_KEY", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("CART_SYNC_DEBOUNCE", "")
	t.Setenv("PRODUCT_FETCH_BACKOFF", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BackendURL != "http://localhost:4000" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.BackendURL)
	}
	if cfg.StorageDriver != "file" {
		t.Fatalf("expected file driver, got %q", cfg.StorageDriver)
	}
	if cfg.ProductFetchRetries != 3 || cfg.ProductFetchBackoff != time.Second {
		t.Fatalf("unexpected fetch defaults: %d %v", cfg.ProductFetchRetries, cfg.ProductFetchBackoff)
	}
	if cfg.ServerHost != "127.0.0.1" || cfg.AccessKey != "" {
		t.Fatalf("unexpected listener defaults: %q %q", cfg.ServerHost, cfg.AccessKey)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("CART_SYNC_DEBOUNCE", "250")
	t.Setenv("PRODUCT_FETCH_BACKOFF", "2s")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SERVER_HOST", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
	if cfg.CartSyncDebounce != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", cfg.CartSyncDebounce)
	}
	if cfg.ProductFetchBackoff != 2*time.Second {
		t.Fatalf("unexpected backoff: %v", cfg.ProductFetchBackoff)
	}
}

func TestLoadConfigDriverRequirements(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:4000")
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for redis driver without REDIS_URL")
	}
}

func TestLoadConfigPublicHostNeedsAccessKey(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:4000")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("ACCESS_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for a public listener without ACCESS_KEY")
	}

	t.Setenv("ACCESS_KEY", "s3cret")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerHost != "0.0.0.0" || cfg.AccessKey != "s3cret" {
		t.Fatalf("unexpected listener: %q %q", cfg.ServerHost, cfg.AccessKey)
	}

	for _, host := range []string{"localhost", "::1", "127.0.0.2"} {
		t.Setenv("SERVER_HOST", host)
		t.Setenv("ACCESS_KEY", "")
		if _, err := LoadConfig(); err != nil {
			t.Fatalf("%s should not need a key: %v", host, err)
		}
	}
}
