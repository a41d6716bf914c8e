package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/fest-registration/internal/utils"
)

// bearer extracts the token from an Authorization header.
func bearer(h string) (string, bool) {
    raw, ok := strings.CutPrefix(h, "Bearer ")
    return strings.TrimSpace(raw), ok && strings.TrimSpace(raw) != ""
}

// JWTAuth requires a valid console access token and stores its claims under
// "user_id", "email" and "role" for PrincipalFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set("user_id", claims.Subject)
            c.Set("email", claims.Email)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}
