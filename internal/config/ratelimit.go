package config

import (
    "strings"
    "time"
)

// Limiter scopes.  Public submissions get their own, stricter budget so a
// burst of form posts cannot starve the review console.
const (
    ScopeSubmit = "submit"
    ScopeAuth   = "auth"
    ScopeAdmin  = "admin"
)

// RateLimitConfig is a fixed-window request budget for one scope.
type RateLimitConfig struct {
    Enabled bool
    Scope   string
    Limit   int           // requests allowed per window
    Window  time.Duration // window length
    ByUser  bool          // key on the authenticated user instead of the client IP
    Prefix  string
}

var scopeDefaults = map[string]RateLimitConfig{
    ScopeSubmit: {Limit: 10, Window: time.Minute},
    ScopeAuth:   {Limit: 20, Window: time.Minute},
    ScopeAdmin:  {Limit: 300, Window: time.Minute, ByUser: true},
}

// LoadRateLimitConfig reads RATE_LIMIT_ENABLED and RATE_LIMIT_PREFIX plus the
// per-scope RATE_LIMIT_<SCOPE>_LIMIT and RATE_LIMIT_<SCOPE>_WINDOW.
// Unknown scopes start from the admin defaults.
func LoadRateLimitConfig(scope string) RateLimitConfig {
    def, ok := scopeDefaults[scope]
    if !ok {
        def = scopeDefaults[ScopeAdmin]
    }
    up := "RATE_LIMIT_" + strings.ToUpper(scope) + "_"
    rl := RateLimitConfig{
        Enabled: envBool("RATE_LIMIT_ENABLED", true),
        Scope:   scope,
        Limit:   envInt(up+"LIMIT", def.Limit),
        Window:  envDur(up+"WINDOW", def.Window),
        ByUser:  def.ByUser,
        Prefix:  envStr("RATE_LIMIT_PREFIX", "festreg:rl"),
    }
    if rl.Limit < 1 {
        rl.Limit = 1
    }
    if rl.Window < time.Second {
        rl.Window = time.Second
    }
    return rl
}
