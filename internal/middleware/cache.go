package middleware

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/config"
)

// cachedResponse is the value stored in Redis for one cached route.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// bodyRecorder tees the response body into buf until limit bytes have been
// seen.  overflow is set once the body no longer fits.
type bodyRecorder struct {
    http.ResponseWriter
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    k := c.Request().Method + " " + c.Path()
    if cfg.IncludeQuery {
        k += "?" + c.Request().URL.RawQuery
    }
    sum := sha256.Sum256([]byte(k))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:16])
}

// NewRedisCache serves repeated anonymous GETs from Redis.  Responses are
// marked X-Cache: HIT or MISS.  Redis failures are logged and the request
// is served uncached.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if req.Method != http.MethodGet || req.Header.Get(echo.HeaderAuthorization) != "" {
                return next(c)
            }
            key := cacheKey(cfg, c)

            if raw, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
                log.Warn("cache: dropping undecodable entry", zap.String("key", key))
            } else if err != redis.Nil {
                log.Warn("cache: redis get failed", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            res := c.Response()
            rec := &bodyRecorder{ResponseWriter: res.Writer, limit: cfg.MaxBodyBytes}
            res.Writer = rec
            res.Header().Set("X-Cache", "MISS")
            err := next(c)
            res.Writer = rec.ResponseWriter
            if err != nil || res.Status != http.StatusOK || rec.overflow {
                return err
            }

            val, mErr := json.Marshal(cachedResponse{
                Status:      res.Status,
                ContentType: res.Header().Get(echo.HeaderContentType),
                Body:        rec.buf.Bytes(),
            })
            if mErr != nil {
                log.Warn("cache: encode failed", zap.String("key", key), zap.Error(mErr))
                return nil
            }
            ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), time.Second)
            defer cancel()
            if sErr := rdb.Set(ctx, key, val, cfg.TTL).Err(); sErr != nil {
                log.Warn("cache: redis set failed", zap.String("key", key), zap.Error(sErr))
            }
            return nil
        }
    }
}
