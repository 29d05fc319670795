package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Fatalf("expected default port 8080 got %d", cfg.API.Port)
	}
	if cfg.Storage.Driver != "local" {
		t.Fatalf("expected local storage driver got %q", cfg.Storage.Driver)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access ttl %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.API.IsProduction() {
		t.Fatalf("default environment must not be production")
	}
	if cfg.Worker.MetricsAddr != ":9091" {
		t.Fatalf("unexpected worker metrics addr %q", cfg.Worker.MetricsAddr)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("JWT_ACCESS_TTL", "30m")
	t.Setenv("CORS_ORIGINS", "https://studio.example, http://localhost:3000 ,")
	t.Setenv("PUBLIC_RATE_LIMIT_RPS", "2.5")
	t.Setenv("WORKER_METRICS_ADDR", "127.0.0.1:9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Fatalf("expected port 9090 got %d", cfg.API.Port)
	}
	if !cfg.API.IsProduction() {
		t.Fatalf("expected production environment")
	}
	if cfg.Admin.Token != "s3cret" {
		t.Fatalf("admin token not bound")
	}
	if cfg.Auth.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("unexpected access ttl %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.RateLimit.PublicRPS != 2.5 {
		t.Fatalf("unexpected rps %v", cfg.RateLimit.PublicRPS)
	}
	if cfg.Worker.MetricsAddr != "127.0.0.1:9200" {
		t.Fatalf("worker metrics addr not bound: %q", cfg.Worker.MetricsAddr)
	}
	origins := cfg.API.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "https://studio.example" || origins[1] != "http://localhost:3000" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown storage driver":   {"STORAGE_DRIVER": "ftp"},
		"minio without keys":       {"STORAGE_DRIVER": "minio"},
		"admin user without hash":  {"ADMIN_USERNAME": "owner"},
		"non positive upload size": {"UPLOAD_MAX_BYTES": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
