package cache

import (
	"errors"
	"strings"
	"time"

	"github.com/Kiarash1380mohebbi/web-scrapy/logger"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// New returns a memcache-backed cache when addr is set, an in-memory one otherwise
func New(addr string) CacheService {
	log := logger.ForCache()
	if addr == "" {
		log.Debug().Msg("Using in-memory cooldown cache")
		return NewMemoryCache()
	}
	log.Debug().Str("addr", addr).Msg("Using memcache cooldown cache")
	return NewMemcacheService(addr)
}

// CooldownKey is the key marking a host as rate limited
func CooldownKey(host string) string {
	return "productsearch:cooldown:" + strings.ToLower(host)
}
