package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ops-tooling/rolegraph/pkg/cache"
	"github.com/ops-tooling/rolegraph/pkg/errors"
)

// Environment variables consulted when flags are not set.
const (
	envURL   = "ROLEGRAPH_URL"
	envToken = "ROLEGRAPH_TOKEN"
)

// config is the file-backed configuration, read from
// ~/.config/rolegraph/config.toml when present. Flags override environment
// variables, which override the file.
type config struct {
	GitLab gitlabConfig `toml:"gitlab"`
	Cache  cacheConfig  `toml:"cache"`
	Redis  redisConfig  `toml:"redis"`
}

type gitlabConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

type cacheConfig struct {
	Backend string `toml:"backend"` // file | redis | none
	Dir     string `toml:"dir"`
	TTL     string `toml:"ttl"`
}

type redisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

func defaultConfig() config {
	return config{
		Cache: cacheConfig{Backend: "file", TTL: "24h"},
		Redis: redisConfig{Addr: "localhost:6379"},
	}
}

// configPath returns the config file location, honoring XDG conventions.
func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "rolegraph", "config.toml"), nil
}

// loadConfig reads the config file if it exists and applies environment
// overrides. A missing file is not an error.
func loadConfig() (config, error) {
	cfg := defaultConfig()

	path, err := configPath()
	if err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	if v := os.Getenv(envURL); v != "" {
		cfg.GitLab.URL = v
	}
	if v := os.Getenv(envToken); v != "" {
		cfg.GitLab.Token = v
	}
	return cfg, nil
}

// cacheDir returns the cache directory, defaulting under the user cache
// root when the config does not set one.
func (c config) cacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(dir, "rolegraph"), nil
}

// cacheTTL parses the configured TTL, defaulting to 24h.
func (c config) cacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid cache ttl %q", c.Cache.TTL)
	}
	return d, nil
}

// openCache constructs the configured cache backend. The backend flag, when
// non-empty, overrides the config file.
func (c config) openCache(ctx context.Context, backend string) (cache.Cache, error) {
	if backend == "" {
		backend = c.Cache.Backend
	}
	switch backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	case "", "file":
		dir, err := c.cacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", backend)
	}
}
