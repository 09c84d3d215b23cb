package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.MongoDB != "alertx" {
		t.Errorf("expected default database alertx, got %q", cfg.MongoDB)
	}
	if cfg.TokenTTL != 168*time.Hour {
		t.Errorf("expected 168h token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.RedisURL != "" {
		t.Errorf("expected redis disabled by default, got %q", cfg.RedisURL)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Errorf("expected default CORS origins")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CLASSIFIER_URL", "http://classifier:6000")
	t.Setenv("CLASSIFIER_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.ServerPort)
	}
	if cfg.ClassifierURL != "http://classifier:6000" {
		t.Errorf("unexpected classifier url %q", cfg.ClassifierURL)
	}
	if cfg.ClassifierTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.ClassifierTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.OTLPEndpoint != "collector:4318" {
		t.Errorf("unexpected otlp endpoint %q", cfg.OTLPEndpoint)
	}
	if !cfg.TrustProxyHeaders {
		t.Errorf("expected proxy headers trusted when enabled")
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid port")
	}
}
