package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/fest-registration/internal/authz"
)

// RequireReviewer aborts with 403 unless policy allows the caller to review
// registrations.  It must run after JWTAuth and LoadAccount.
func RequireReviewer(policy authz.Policy) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !policy.CanReview(PrincipalFrom(c)) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
