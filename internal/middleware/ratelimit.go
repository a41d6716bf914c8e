package middleware

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/config"
)

// rateKey identifies the caller's counter for the current window.
func rateKey(cfg config.RateLimitConfig, c echo.Context, window int64) string {
    who := "ip:" + c.RealIP()
    if cfg.ByUser {
        if uid := ctxString(c, "user_id"); uid != "" {
            who = "user:" + uid
        }
    }
    return cfg.Prefix + ":" + cfg.Scope + ":" + who + ":" + strconv.FormatInt(window, 10)
}

// NewRateLimiter enforces a fixed-window budget per caller with one INCR and
// PEXPIRE pipeline per request.  Over-budget requests get 429 with
// Retry-After.  Redis errors let the request through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            now := time.Now()
            window := now.UnixMilli() / cfg.Window.Milliseconds()
            key := rateKey(cfg, c, window)

            pipe := rdb.TxPipeline()
            incr := pipe.Incr(c.Request().Context(), key)
            pipe.PExpire(c.Request().Context(), key, cfg.Window)
            if _, err := pipe.Exec(c.Request().Context()); err != nil {
                log.Warn("ratelimit: redis error, allowing request", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            used := int(incr.Val())
            remaining := cfg.Limit - used
            if remaining < 0 {
                remaining = 0
            }
            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
            h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

            if used > cfg.Limit {
                resetAt := time.UnixMilli((window + 1) * cfg.Window.Milliseconds())
                secs := int(time.Until(resetAt).Seconds()) + 1
                h.Set("Retry-After", strconv.Itoa(secs))
                log.Debug("ratelimit: blocked", zap.String("scope", cfg.Scope), zap.String("key", key))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}
