package middleware

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/model"
    "github.com/iliyamo/fest-registration/internal/repository"
)

// AccountLoader reads a console account by id.
type AccountLoader interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// LoadAccount replaces the email and role taken from the token with the
// values stored for the account, so role changes and deactivation apply to
// tokens already issued.  It must run after JWTAuth.
func LoadAccount(accounts AccountLoader, log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, err := strconv.ParseUint(ctxString(c, "user_id"), 10, 64)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
            defer cancel()
            u, err := accounts.GetByID(ctx, id)
            if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
            }
            if err != nil {
                log.Error("load account failed", zap.Uint64("user_id", id), zap.Error(err))
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "account lookup unavailable"})
            }
            c.Set("email", u.Email)
            c.Set("role", u.Role)
            return next(c)
        }
    }
}
