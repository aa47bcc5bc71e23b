package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("ANALYTICS_SERVICE_URL", "")
	t.Setenv("ANALYTICS_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTP.Port != defaultPort {
		t.Errorf("expected port %d, got %d", defaultPort, cfg.HTTP.Port)
	}
	if cfg.Upstream.BaseURL != defaultUpstreamURL {
		t.Errorf("expected upstream %s, got %s", defaultUpstreamURL, cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout != defaultUpstreamTimeout {
		t.Errorf("expected timeout %s, got %s", defaultUpstreamTimeout, cfg.Upstream.Timeout)
	}
	if cfg.Layout.MaxTicks != 100 {
		t.Errorf("expected 100 ticks, got %d", cfg.Layout.MaxTicks)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYTICS_SERVICE_URL", "http://analytics:5000")
	t.Setenv("ANALYTICS_TIMEOUT", "2s")
	t.Setenv("ANALYTICS_RATE_LIMIT", "12.5")
	t.Setenv("LAYOUT_MAX_TICKS", "250")
	t.Setenv("LAYOUT_SEED", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Upstream.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %s", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.RatePerSecond != 12.5 {
		t.Errorf("expected rate 12.5, got %v", cfg.Upstream.RatePerSecond)
	}
	if cfg.Layout.MaxTicks != 250 || cfg.Layout.Seed != 7 {
		t.Errorf("unexpected layout config %+v", cfg.Layout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":          "70000",
		"ANALYTICS_TIMEOUT":    "soon",
		"ANALYTICS_RATE_LIMIT": "-1",
		"LAYOUT_MAX_TICKS":     "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := HTTPConfig{AllowedOriginsCSV: " http://localhost:3000, ,https://dash.example "}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "http://localhost:3000" || got[1] != "https://dash.example" {
		t.Fatalf("unexpected origins %q", got)
	}
	if (HTTPConfig{}).AllowedOrigins() != nil {
		t.Fatalf("expected nil origins for empty csv")
	}
}
