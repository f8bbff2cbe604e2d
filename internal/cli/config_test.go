package cli

import (
	"context"
	"testing"
	"time"

	"github.com/ops-tooling/rolegraph/pkg/errors"
)

func TestCacheTTL(t *testing.T) {
	tests := []struct {
		name    string
		ttl     string
		want    time.Duration
		wantErr bool
	}{
		{name: "default", ttl: "", want: 24 * time.Hour},
		{name: "hours", ttl: "6h", want: 6 * time.Hour},
		{name: "minutes", ttl: "90m", want: 90 * time.Minute},
		{name: "garbage", ttl: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Cache.TTL = tt.ttl
			got, err := cfg.cacheTTL()
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cacheTTL: %v", err)
			}
			if got != tt.want {
				t.Errorf("cacheTTL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenCacheBackends(t *testing.T) {
	cfg := defaultConfig()
	cfg.Cache.Dir = t.TempDir()

	if _, err := cfg.openCache(context.Background(), "none"); err != nil {
		t.Errorf("none backend: %v", err)
	}
	if _, err := cfg.openCache(context.Background(), "file"); err != nil {
		t.Errorf("file backend: %v", err)
	}
	if _, err := cfg.openCache(context.Background(), "floppy"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown backend err = %v, want INVALID_INPUT", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(envURL, "https://gitlab.test")
	t.Setenv(envToken, "secret")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.GitLab.URL != "https://gitlab.test" {
		t.Errorf("URL = %q", cfg.GitLab.URL)
	}
	if cfg.GitLab.Token != "secret" {
		t.Errorf("Token = %q", cfg.GitLab.Token)
	}
}

func TestInstanceHost(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://gitlab.example.com", "gitlab.example.com"},
		{"https://gitlab.example.com:8443/", "gitlab.example.com:8443"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := instanceHost(tt.raw); got != tt.want {
			t.Errorf("instanceHost(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
