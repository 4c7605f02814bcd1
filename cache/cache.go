// Package cache provides translation caching implementations.
//
// Keys are built by mdtl.CacheKeyExtended from the source document hash,
// the language pair and the backend name, so an unchanged document is never
// sent to the same backend twice.
package cache

import (
	"fmt"
	"strings"
	"time"
)

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// ExportableCache is implemented by caches that can enumerate their entries.
type ExportableCache interface {
	TranslationCache
	// Entries returns all live entries as key-value pairs.
	Entries() (map[string]string, error)
}

// Config selects and configures a cache implementation.
type Config struct {
	Type      string        // "none", "memory" or "redis"
	URL       string        // Redis connection URL
	TTL       time.Duration // 0 disables expiry
	KeyPrefix string        // Redis key prefix
}

// New builds the cache described by cfg. It returns nil, nil for type
// "none" (or empty), meaning caching is disabled.
func New(cfg Config) (TranslationCache, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewInMemoryCache(cfg.TTL), nil
	case "redis":
		if cfg.URL == "" {
			return nil, fmt.Errorf("redis cache requires a url")
		}
		c, err := NewRedisCache(RedisConfig{URL: cfg.URL, TTL: cfg.TTL, KeyPrefix: cfg.KeyPrefix})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
