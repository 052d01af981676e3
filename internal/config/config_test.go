package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ADDR", "TOKEN_IDLE_TIMEOUT", "ONLINE_WINDOW", "CORS_ORIGINS", "DATABASE_DRIVER"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Addr != ":21114" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.IdleTimeout != time.Hour {
		t.Fatalf("expected 1h idle timeout, got %s", cfg.IdleTimeout)
	}
	if cfg.OnlineWindow != time.Minute {
		t.Fatalf("expected 60s online window, got %s", cfg.OnlineWindow)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.DatabaseDriver)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.LDAP.Enabled() {
		t.Fatalf("ldap should be disabled without LDAP_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOKEN_IDLE_TIMEOUT", "7200")
	t.Setenv("ONLINE_WINDOW", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOGIN_RATE_LIMIT", "not-a-number")

	cfg := Load()
	if cfg.IdleTimeout != 2*time.Hour {
		t.Fatalf("expected seconds to be accepted, got %s", cfg.IdleTimeout)
	}
	if cfg.OnlineWindow != 5*time.Minute {
		t.Fatalf("expected 5m, got %s", cfg.OnlineWindow)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.LoginRateLimit != 20 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.LoginRateLimit)
	}
}
