package config

import "time"

// CacheConfig controls the Redis response cache in front of the public
// catalog.  Only anonymous GET responses with status 200 are stored.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
    // IncludeQuery adds the raw query string to the key.  The catalog takes
    // no parameters, so it is off by default to keep one entry per route.
    IncludeQuery bool
}

// LoadCacheConfig reads CACHE_* variables.  A TTL below one second is raised
// to one second.
func LoadCacheConfig() CacheConfig {
    cc := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        Prefix:       envStr("CACHE_PREFIX", "festreg:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
        IncludeQuery: envBool("CACHE_INCLUDE_QUERY", false),
    }
    if cc.TTL < time.Second {
        cc.TTL = time.Second
    }
    return cc
}
